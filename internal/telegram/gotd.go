package telegram

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/query/dialogs"
	"github.com/gotd/td/tg"

	"github.com/danhigham/groupcast/internal/domain"
)

// entityLookup is the part of the dialog entities needed to describe a peer.
type entityLookup interface {
	Chat(id int64) (*tg.Chat, bool)
	Channel(id int64) (*tg.Channel, bool)
}

// Dialogs walks the whole dialog list.
func (c *Conn) Dialogs(ctx context.Context) ([]domain.Dialog, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	iter := dialogs.NewQueryBuilder(c.api).GetDialogs().BatchSize(100).Iter()

	var result []domain.Dialog
	for iter.Next(ctx) {
		elem := iter.Value()
		if elem.Dialog == nil {
			continue
		}
		result = append(result, toDialog(elem.Dialog.GetPeer(), elem.Entities, elem.Peer))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterate dialogs: %w", mapError(err))
	}
	c.logger.Debug("dialogs loaded", zap.Int("count", len(result)))
	return result, nil
}

// toDialog describes one dialog. Chats and channels the account can no
// longer see (forbidden) come back as DialogOther.
func toDialog(p tg.PeerClass, ents entityLookup, input tg.InputPeerClass) domain.Dialog {
	switch p := p.(type) {
	case *tg.PeerUser:
		return domain.Dialog{Type: domain.DialogUser, ID: p.UserID, Peer: input}
	case *tg.PeerChat:
		ch, ok := ents.Chat(p.ChatID)
		if !ok {
			return domain.Dialog{Type: domain.DialogOther, ID: p.ChatID, Peer: input}
		}
		members := ch.ParticipantsCount
		_, admin := ch.GetAdminRights()
		return domain.Dialog{
			Type:    domain.DialogChat,
			ID:      ch.ID,
			Title:   ch.Title,
			Creator: ch.Creator,
			Admin:   admin,
			Members: &members,
			Peer:    input,
		}
	case *tg.PeerChannel:
		ch, ok := ents.Channel(p.ChannelID)
		if !ok {
			return domain.Dialog{Type: domain.DialogOther, ID: p.ChannelID, Peer: input}
		}
		d := domain.Dialog{
			Type:      domain.DialogChannel,
			ID:        ch.ID,
			Title:     ch.Title,
			Megagroup: ch.Megagroup,
			Broadcast: ch.Broadcast,
			Creator:   ch.Creator,
			Peer:      input,
		}
		_, d.Admin = ch.GetAdminRights()
		if n, ok := ch.GetParticipantsCount(); ok {
			d.Members = &n
		}
		return d
	default:
		return domain.Dialog{Type: domain.DialogOther, Peer: input}
	}
}

// JoinPublic resolves username and joins the channel or supergroup behind it.
func (c *Conn) JoinPublic(ctx context.Context, username string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	resolved, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return fmt.Errorf("resolve %s: %w", username, mapError(err))
	}

	target, ok := resolved.Peer.(*tg.PeerChannel)
	if !ok {
		return fmt.Errorf("%w: @%s is not a group", domain.ErrGroupNotFound, username)
	}
	var channel *tg.Channel
	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == target.ChannelID {
			channel = ch
			break
		}
	}
	if channel == nil {
		return fmt.Errorf("%w: @%s", domain.ErrGroupNotFound, username)
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	_, err = c.api.ChannelsJoinChannel(ctx, &tg.InputChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	})
	if err != nil {
		return fmt.Errorf("join channel: %w", mapError(err))
	}
	c.logger.Info("joined public group", zap.Int64("channel", channel.ID))
	return nil
}

func (c *Conn) JoinInvite(ctx context.Context, hash string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.MessagesImportChatInvite(ctx, hash); err != nil {
		return fmt.Errorf("import invite: %w", mapError(err))
	}
	c.logger.Info("joined group by invite")
	return nil
}

// SendText sends text to peer. Markdown markers in text become message
// entities.
func (c *Conn) SendText(ctx context.Context, peer domain.Peer, text string) error {
	input, err := inputPeer(peer)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.sender.To(input).StyledText(ctx, FormatMessage(text)...); err != nil {
		return mapError(err)
	}
	return nil
}

// SendFile uploads the file at path and sends it with caption. Images are
// sent as photos, anything else as a document.
func (c *Conn) SendFile(ctx context.Context, peer domain.Peer, path, caption string) error {
	input, err := inputPeer(peer)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	file, err := c.uploader.FromPath(ctx, path)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(path), mapError(err))
	}

	var media message.MediaOption
	captions := FormatMessage(caption)
	if isPhoto(path) {
		media = message.UploadedPhoto(file, captions...)
	} else {
		media = message.UploadedDocument(file, captions...).
			MIME(mimeType(path)).
			Filename(filepath.Base(path))
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.sender.To(input).Media(ctx, media); err != nil {
		return mapError(err)
	}
	return nil
}

func inputPeer(p domain.Peer) (tg.InputPeerClass, error) {
	input, ok := p.(tg.InputPeerClass)
	if !ok || input == nil {
		return nil, fmt.Errorf("unsupported peer %T", p)
	}
	return input, nil
}

var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func isPhoto(path string) bool {
	return photoExts[strings.ToLower(filepath.Ext(path))]
}

func mimeType(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return "application/octet-stream"
}

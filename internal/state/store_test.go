package state_test

import (
	"reflect"
	"testing"

	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/state"
)

func groups(ids ...int64) []domain.Group {
	out := make([]domain.Group, len(ids))
	for i, id := range ids {
		out[i] = domain.Group{ID: id, Title: "g", Kind: domain.GroupKindGroup, Account: "100", Peer: id}
	}
	return out
}

func TestStore_OnGroupsUpdate(t *testing.T) {
	s := state.New(nil)

	s.OnGroupsUpdate("100", groups(1, 2))

	got := s.Groups()
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("order = %d,%d; want 1,2", got[0].ID, got[1].ID)
	}
	if s.Account() != "100" {
		t.Errorf("Account = %q, want 100", s.Account())
	}
}

func TestStore_Lookups(t *testing.T) {
	s := state.New(nil)
	s.OnGroupsUpdate("100", groups(10, 20, 30))

	if g, ok := s.GroupAt(1); !ok || g.ID != 20 {
		t.Errorf("GroupAt(1) = %d, %v; want 20, true", g.ID, ok)
	}
	for _, i := range []int{-1, 3, 100} {
		if _, ok := s.GroupAt(i); ok {
			t.Errorf("GroupAt(%d) found, want not found", i)
		}
	}
	if g, ok := s.GroupByID(30); !ok || g.ID != 30 {
		t.Errorf("GroupByID(30) = %d, %v", g.ID, ok)
	}
	if _, ok := s.GroupByID(99); ok {
		t.Error("GroupByID(99) found, want not found")
	}
}

func TestStore_SelectionOrder(t *testing.T) {
	s := state.New(nil)
	s.OnGroupsUpdate("100", groups(1, 2, 3))

	n := s.Select([]int64{3, 1, 3, 42})
	if n != 2 {
		t.Errorf("Select kept %d, want 2", n)
	}
	sel := s.Selected()
	if len(sel) != 2 || sel[0].ID != 3 || sel[1].ID != 1 {
		t.Errorf("Selected = %+v, want ids 3,1", sel)
	}
	ids := s.SelectedIDs()
	if !reflect.DeepEqual(ids, []int64{3, 1}) {
		t.Errorf("SelectedIDs = %v, want [3 1]", ids)
	}
	ids[0] = 99
	if s.SelectedIDs()[0] != 3 {
		t.Error("SelectedIDs shares the store's slice")
	}

	s.ClearSelection()
	if len(s.Selected()) != 0 {
		t.Error("ClearSelection left groups selected")
	}
}

func TestStore_RefreshPrunesSelection(t *testing.T) {
	s := state.New(nil)
	s.OnGroupsUpdate("100", groups(1, 2, 3))
	s.Select([]int64{1, 2, 3})

	s.OnGroupsUpdate("100", groups(1, 3))
	sel := s.Selected()
	if len(sel) != 2 || sel[0].ID != 1 || sel[1].ID != 3 {
		t.Errorf("Selected = %+v, want ids 1,3", sel)
	}

	s.OnGroupsUpdate("200", groups(1, 3))
	if len(s.Selected()) != 0 {
		t.Error("switching account must clear the selection")
	}
}

func TestStore_OnChange(t *testing.T) {
	calls := 0
	s := state.New(func() { calls++ })

	s.OnGroupsUpdate("100", groups(1))
	s.Select([]int64{1})
	if calls != 2 {
		t.Errorf("onChange calls = %d, want 2", calls)
	}
}

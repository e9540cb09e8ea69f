// Package checklist keeps simple named to-do lists (packing lists and the
// like). Lists do not interact with points.
package checklist

import (
	"strings"

	"github.com/warp/carepoints/generic"
)

type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Unchecked returns the items not yet done, in order.
func (l List) Unchecked() []Item { return l.filter(false) }

// Checked returns the items already done, in order.
func (l List) Checked() []Item { return l.filter(true) }

func (l List) filter(done bool) []Item {
	out := []Item{}
	for _, it := range l.Items {
		if it.Done == done {
			out = append(out, it)
		}
	}
	return out
}

// SeedNames are the lists a fresh board starts with.
var SeedNames = []string{"Hospital Bag", "Diaper Bag"}

// Board is the set of lists plus the one being shown.
type Board struct {
	newID  generic.IDFunc
	lists  []List
	active string
}

func NewBoard(newID generic.IDFunc) *Board {
	if newID == nil {
		newID = generic.NewID
	}
	return &Board{newID: newID}
}

// Seed replaces the board with the default lists.
func (b *Board) Seed() error {
	lists := make([]List, 0, len(SeedNames))
	for _, name := range SeedNames {
		id, err := b.newID()
		if err != nil {
			return err
		}
		lists = append(lists, List{ID: id, Name: name, Items: []Item{}})
	}
	b.lists = lists
	b.active = ""
	return nil
}

// Restore loads persisted lists. Lists without an id are dropped.
func (b *Board) Restore(lists []List, active string) {
	b.lists = make([]List, 0, len(lists))
	for _, l := range lists {
		if l.ID == "" {
			continue
		}
		if l.Items == nil {
			l.Items = []Item{}
		}
		b.lists = append(b.lists, l)
	}
	b.active = active
}

// Lists returns a copy of every list.
func (b *Board) Lists() []List {
	out := make([]List, len(b.lists))
	for i, l := range b.lists {
		l.Items = append([]Item{}, l.Items...)
		out[i] = l
	}
	return out
}

// ActiveID returns the selected list, falling back to the first list when
// the selection is empty or stale. Empty when there are no lists.
func (b *Board) ActiveID() string {
	if b.indexOf(b.active) >= 0 {
		return b.active
	}
	if len(b.lists) > 0 {
		return b.lists[0].ID
	}
	return ""
}

// Active returns the list ActiveID points at.
func (b *Board) Active() (List, bool) {
	return b.Get(b.ActiveID())
}

func (b *Board) Get(id string) (List, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return List{}, false
	}
	l := b.lists[i]
	l.Items = append([]Item{}, l.Items...)
	return l, true
}

// Select makes id the active list.
func (b *Board) Select(id string) bool {
	if b.indexOf(id) < 0 {
		return false
	}
	b.active = id
	return true
}

// AddList appends a list and selects it.
func (b *Board) AddList(name string) (List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return List{}, generic.Invalid("name", "required")
	}
	id, err := b.newID()
	if err != nil {
		return List{}, err
	}
	l := List{ID: id, Name: name, Items: []Item{}}
	b.lists = append(b.lists, l)
	b.active = id
	return l, nil
}

// DeleteList removes a list. Deleting the active list clears the selection.
func (b *Board) DeleteList(id string) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.lists = append(b.lists[:i], b.lists[i+1:]...)
	if b.active == id {
		b.active = ""
	}
	return true
}

// AddItem appends an unchecked item to the list.
func (b *Board) AddItem(listID, text string) (Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Item{}, generic.Invalid("text", "required")
	}
	i := b.indexOf(listID)
	if i < 0 {
		return Item{}, generic.Invalid("list", "unknown list")
	}
	id, err := b.newID()
	if err != nil {
		return Item{}, err
	}
	it := Item{ID: id, Text: text}
	b.lists[i].Items = append(b.lists[i].Items, it)
	return it, nil
}

func (b *Board) ToggleItem(listID, itemID string) bool {
	return b.editItem(listID, itemID, func(items []Item, j int) []Item {
		items[j].Done = !items[j].Done
		return items
	})
}

func (b *Board) DeleteItem(listID, itemID string) bool {
	return b.editItem(listID, itemID, func(items []Item, j int) []Item {
		return append(items[:j], items[j+1:]...)
	})
}

func (b *Board) editItem(listID, itemID string, fn func([]Item, int) []Item) bool {
	i := b.indexOf(listID)
	if i < 0 {
		return false
	}
	for j := range b.lists[i].Items {
		if b.lists[i].Items[j].ID == itemID {
			b.lists[i].Items = fn(b.lists[i].Items, j)
			return true
		}
	}
	return false
}

func (b *Board) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range b.lists {
		if b.lists[i].ID == id {
			return i
		}
	}
	return -1
}

package tui

import "charm.land/bubbles/v2/key"

// keyMap holds every binding; views pick the ones they show in help.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	nextView   key.Binding
	prevView   key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	open       key.Binding
	back       key.Binding

	toggleMode key.Binding
	cycleRange key.Binding

	search       key.Binding
	cycleSort    key.Binding
	cycleStatus  key.Binding
	cycleTeam    key.Binding
	clearFilters key.Binding
	toggleSelect key.Binding
	selectAll    key.Binding
	bulkStatus   key.Binding
	bulkDelete   key.Binding

	copyLink    key.Binding
	phaseStatus key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		nextView:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		prevView:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous view")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "previous tab")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "next tab")),
		open:       key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "task detail")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),

		toggleMode: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "project/person")),
		cycleRange: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "date range")),

		search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		cycleSort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		cycleStatus:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status filter")),
		cycleTeam:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "team filter")),
		clearFilters: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),
		toggleSelect: key.NewBinding(key.WithKeys("space", " "), key.WithHelp("space", "select")),
		selectAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		bulkStatus:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bulk status")),
		bulkDelete:   key.NewBinding(key.WithKeys("D", "shift+d"), key.WithHelp("D", "delete selected")),

		copyLink:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy link")),
		phaseStatus: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "phase status")),
	}
}

// helpKeys adapts the key map to the help bubble for one view.
type helpKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding  { return h.short }
func (h helpKeys) FullHelp() [][]key.Binding { return h.full }

func (k keyMap) forView(v view) helpKeys {
	common := []key.Binding{k.nextView, k.prevView, k.reload, k.toggleHelp, k.quit}
	switch v {
	case viewTimeline:
		local := []key.Binding{k.moveUp, k.moveDown, k.toggleMode, k.cycleRange, k.open}
		return helpKeys{short: append(local[2:], k.nextView, k.quit), full: [][]key.Binding{local, common}}
	case viewAdmin:
		local := []key.Binding{k.moveUp, k.moveDown, k.search, k.cycleSort, k.cycleStatus, k.cycleTeam, k.clearFilters, k.open}
		bulk := []key.Binding{k.toggleSelect, k.selectAll, k.bulkStatus, k.bulkDelete}
		return helpKeys{short: []key.Binding{k.search, k.cycleSort, k.toggleSelect, k.bulkStatus, k.nextView, k.quit}, full: [][]key.Binding{local, bulk, common}}
	case viewWorkload:
		local := []key.Binding{k.moveUp, k.moveDown, k.moveLeft, k.moveRight}
		return helpKeys{short: []key.Binding{k.moveLeft, k.moveRight, k.nextView, k.quit}, full: [][]key.Binding{local, common}}
	default:
		local := []key.Binding{k.moveUp, k.moveDown, k.phaseStatus, k.copyLink, k.back}
		return helpKeys{short: local[2:], full: [][]key.Binding{local, {k.toggleHelp, k.quit}}}
	}
}

package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"pipedream/widgets"
)

type keyMap struct {
	Note    key.Binding
	Preview key.Binding
	Step    key.Binding
	Delete  key.Binding
	Left    key.Binding
	Right   key.Binding
	Remove  key.Binding
	PlaySel key.Binding
	Clear   key.Binding
	Drone   key.Binding
	Name    key.Binding
	Save    key.Binding
	Share   key.Binding
	Drawer  key.Binding
	Help    key.Binding
	Quit    key.Binding

	// drawer
	Up     key.Binding
	Down   key.Binding
	Load   key.Binding
	Forget key.Binding
	Close  key.Binding
}

func bind(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

func defaultKeyMap() keyMap {
	return keyMap{
		Note:    key.NewBinding(key.WithKeys("a", "s", "d", "f", "g", "h", "j", "k", "l"), key.WithHelp("a-l", "add note")),
		Preview: key.NewBinding(key.WithKeys("A", "S", "D", "F", "G", "H", "J", "K", "L"), key.WithHelp("A-L", "preview")),
		Step:    key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "play next")),
		Delete:  bind("delete last", "backspace"),
		Left:    bind("select", "left"),
		Right:   bind("select", "right"),
		Remove:  bind("remove selected", "x"),
		PlaySel: bind("play selected", "p"),
		Clear:   bind("clear", "c"),
		Drone:   bind("drone", "z"),
		Name:    bind("name", "n"),
		Save:    bind("save", "w"),
		Share:   bind("copy link", "y"),
		Drawer:  bind("saved tunes", "o"),
		Help:    bind("help", "?"),
		Quit:    bind("quit", "q", "ctrl+c"),

		Up:     bind("up", "up", "k"),
		Down:   bind("down", "down", "j"),
		Load:   bind("load", "enter"),
		Forget: bind("delete", "x", "backspace"),
		Close:  bind("close", "esc", "o"),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Note, k.Step, k.Delete, k.Drone, k.Save, k.Share, k.Drawer, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Note, k.Preview, k.Step, k.Delete},
		{k.Left, k.Remove, k.PlaySel, k.Clear},
		{k.Drone, k.Name, k.Save, k.Share},
		{k.Drawer, k.Help, k.Quit},
	}
}

// drawerHelp is the drawer's short help
func (k keyMap) drawerHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Load, k.Forget, k.Close}
}

// sections lays the bindings out for the full reference page
func (k keyMap) sections() []widgets.KeySection {
	entry := func(b key.Binding) widgets.KeyBinding {
		h := b.Help()
		return widgets.KeyBinding{Key: h.Key, Desc: h.Desc}
	}
	return []widgets.KeySection{
		{Title: "Notes", Keys: []widgets.KeyBinding{
			entry(k.Note), entry(k.Preview), entry(k.Step), entry(k.Delete),
			{Key: "←/→", Desc: "select note"}, entry(k.Remove), entry(k.PlaySel), entry(k.Clear),
		}},
		{Title: "Tune", Keys: []widgets.KeyBinding{
			entry(k.Drone), entry(k.Name), entry(k.Save), entry(k.Share), entry(k.Drawer),
		}},
		{Title: "Saved tunes", Keys: []widgets.KeyBinding{
			{Key: "↑/↓", Desc: "move"}, entry(k.Load), entry(k.Forget), entry(k.Close),
		}},
		{Keys: []widgets.KeyBinding{entry(k.Help), entry(k.Quit)}},
	}
}

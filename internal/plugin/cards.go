package plugin

import "sync"

// Cards collects the UI fragments plugins contribute. The outer page layer
// renders them; this package only stores providers in registration order.
type Cards struct {
	mu           sync.RWMutex
	indexCards   map[string][]func() string
	indexOrder   []string
	panelCards   map[string]PanelCard
	indexInjects []func() string
	panelInjects []func() string
}

// PanelCard is a unique admin-panel fragment.
type PanelCard struct {
	Title   string
	Plugin  string
	Content func() string
}

func NewCards() *Cards {
	return &Cards{
		indexCards: make(map[string][]func() string),
		panelCards: make(map[string]PanelCard),
	}
}

func (c *Cards) addIndexCard(id string, content func() string) {
	c.mu.Lock()
	if _, ok := c.indexCards[id]; !ok {
		c.indexOrder = append(c.indexOrder, id)
	}
	c.indexCards[id] = append(c.indexCards[id], content)
	c.mu.Unlock()
}

func (c *Cards) addPanelCard(id, title, owner string, content func() string) {
	c.mu.Lock()
	c.panelCards[id] = PanelCard{Title: title, Plugin: owner, Content: content}
	c.mu.Unlock()
}

func (c *Cards) addIndexInject(content func() string) {
	c.mu.Lock()
	c.indexInjects = append(c.indexInjects, content)
	c.mu.Unlock()
}

func (c *Cards) addPanelInject(content func() string) {
	c.mu.Lock()
	c.panelInjects = append(c.panelInjects, content)
	c.mu.Unlock()
}

// IndexCards renders every registered index card, concatenating multiple
// providers for the same slot in registration order.
func (c *Cards) IndexCards() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.indexCards))
	for _, id := range c.indexOrder {
		var body string
		for _, f := range c.indexCards[id] {
			body += f()
		}
		out[id] = body
	}
	return out
}

// PanelCards renders the admin-panel cards.
func (c *Cards) PanelCards() map[string]PanelCard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]PanelCard, len(c.panelCards))
	for id, card := range c.panelCards {
		out[id] = card
	}
	return out
}

// IndexInjects returns the rendered index injections in order.
func (c *Cards) IndexInjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return renderAll(c.indexInjects)
}

// PanelInjects returns the rendered panel injections in order.
func (c *Cards) PanelInjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return renderAll(c.panelInjects)
}

func renderAll(fns []func() string) []string {
	out := make([]string, 0, len(fns))
	for _, f := range fns {
		out = append(out, f())
	}
	return out
}

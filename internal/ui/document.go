package ui

import "sync"

// Element is the observable state of one page element.
type Element struct {
	Value    string
	Text     string
	Color    string
	Hidden   bool
	Active   bool
	Disabled bool
}

// Document is an in-memory Page. Elements spring into existence on first write.
type Document struct {
	mu       sync.RWMutex
	elements map[ElementID]*Element
	scrolled []ElementID
}

// NewDocument returns a Document laid out like the initial page: coordinate entry and
// automatic data active, manual fields and both surfaces hidden.
func NewDocument() *Document {
	d := &Document{elements: make(map[ElementID]*Element)}
	d.SetActive(CoordsButton, true)
	d.SetActive(AutoDataButton, true)
	d.SetHidden(MapPanel, true)
	d.SetHidden(ManualDataPanel, true)
	d.SetHidden(ResultsSurface, true)
	d.SetHidden(ErrorSurface, true)
	d.SetHidden(BusySpinner, true)
	d.SetText(PredictButton, PredictLabel)
	return d
}

func (d *Document) element(id ElementID) *Element {
	e, ok := d.elements[id]
	if !ok {
		e = &Element{}
		d.elements[id] = e
	}
	return e
}

// Element returns a copy of the element's state.
func (d *Document) Element(id ElementID) Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.elements[id]; ok {
		return *e
	}
	return Element{}
}

func (d *Document) Value(id ElementID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.elements[id]; ok {
		return e.Value
	}
	return ""
}

func (d *Document) SetValue(id ElementID, v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Value = v
}

func (d *Document) Text(id ElementID) string {
	return d.Element(id).Text
}

func (d *Document) SetText(id ElementID, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Text = text
}

func (d *Document) SetColor(id ElementID, css string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Color = css
}

func (d *Document) Hidden(id ElementID) bool {
	return d.Element(id).Hidden
}

func (d *Document) SetHidden(id ElementID, hidden bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Hidden = hidden
}

func (d *Document) SetActive(id ElementID, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Active = active
}

func (d *Document) SetDisabled(id ElementID, disabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.element(id).Disabled = disabled
}

// ScrollIntoView records the request. The console prints the last surface recorded.
func (d *Document) ScrollIntoView(id ElementID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolled = append(d.scrolled, id)
}

// TakeScrolled returns and clears the elements scrolled into view since the last call.
func (d *Document) TakeScrolled() []ElementID {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.scrolled
	d.scrolled = nil
	return out
}

package deck

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSlideNotFound is returned when an operation names a slide ID the
// deck does not contain.
var ErrSlideNotFound = errors.New("slide not found")

// ErrEmptyDeck is returned when an export is requested for a deck with
// no slides.
var ErrEmptyDeck = errors.New("deck has no slides")

// Direction moves a slide within the deck.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// ParseDirection maps a form value to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case MoveUp, MoveDown:
		return Direction(s), nil
	}
	return "", errors.New("unknown move direction: " + s)
}

// Deck is an ordered list of slides. Positions are 1-based and stay
// contiguous across every mutation. Safe for concurrent use.
type Deck struct {
	mu     sync.RWMutex
	slides []*Slide
	nextID int
}

// New creates an empty deck.
func New() *Deck {
	return &Deck{}
}

// Len returns the number of slides.
func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.slides)
}

// Slides returns the slides in position order. The returned values are
// copies so callers can render without holding the deck lock.
func (d *Deck) Slides() []Slide {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Slide, len(d.slides))
	for i, s := range d.slides {
		out[i] = *s
	}
	return out
}

// Get returns a copy of the slide with the given ID.
func (d *Deck) Get(id string) (Slide, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i := d.indexOf(id); i >= 0 {
		return *d.slides[i], true
	}
	return Slide{}, false
}

// Add appends a slide to the end of the deck, assigning its ID and
// position. New slides start fully selected for export. Returns the
// stored copy.
func (d *Deck) Add(s Slide) Slide {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	now := time.Now()
	s.ID = fmt.Sprintf("slide_%d", d.nextID)
	s.Position = len(d.slides) + 1
	s.Selection = DefaultSelection()
	s.CreatedAt = now
	s.UpdatedAt = now
	stored := s
	d.slides = append(d.slides, &stored)
	return stored
}

// Update replaces the content of an existing slide. ID, position and
// creation time are preserved.
func (d *Deck) Update(id string, s Slide) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return ErrSlideNotFound
	}
	cur := d.slides[i]
	cur.Title = s.Title
	cur.Kind = s.Kind
	cur.Body = s.Body
	cur.Bullets = s.Bullets
	cur.Data = s.Data
	cur.Rows = s.Rows
	cur.CompareRows = s.CompareRows
	cur.UpdatedAt = time.Now()
	return nil
}

// Remove deletes a slide and renumbers the remainder so positions stay
// contiguous.
func (d *Deck) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return ErrSlideNotFound
	}
	d.slides = append(d.slides[:i], d.slides[i+1:]...)
	d.renumber()
	return nil
}

// Move shifts a slide one position up or down. Moving the first slide
// up or the last slide down is a no-op.
func (d *Deck) Move(id string, dir Direction) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return ErrSlideNotFound
	}

	j := i
	switch dir {
	case MoveUp:
		j = i - 1
	case MoveDown:
		j = i + 1
	}
	if j < 0 || j >= len(d.slides) || j == i {
		return nil
	}

	d.slides[i], d.slides[j] = d.slides[j], d.slides[i]
	d.renumber()
	return nil
}

// ApplySelections updates export selections from a preview form post.
// Slides absent from the map keep their current selection.
func (d *Deck) ApplySelections(selections map[string]Selection) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.slides {
		if sel, ok := selections[s.ID]; ok {
			s.Selection = sel
		}
	}
}

// Included returns copies of the slides selected for export, in
// position order.
func (d *Deck) Included() []Slide {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Slide
	for _, s := range d.slides {
		if s.Selection.IncludeSlide {
			out = append(out, *s)
		}
	}
	return out
}

// Clear removes every slide. ID numbering continues from where it was.
func (d *Deck) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slides = nil
}

// indexOf returns the slice index for an ID, or -1. Caller holds a lock.
func (d *Deck) indexOf(id string) int {
	for i, s := range d.slides {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// renumber reassigns contiguous 1-based positions. Caller holds the
// write lock.
func (d *Deck) renumber() {
	for i, s := range d.slides {
		s.Position = i + 1
	}
}

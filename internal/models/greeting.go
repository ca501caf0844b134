// Package models contains data models for the greeting service.
package models

import (
	"strings"
	"time"
)

// Field bounds, enforced on input and by the greetings table constraints
const (
	MaxNameLength     = 100
	MaxMessageLength  = 500
	MaxSubtitleLength = 150
	MaxQuoteLength    = 300
	MaxMemories       = 10
	MaxMemoryLength   = 200
	MaxDayIndex       = 365
	MaxIDLength       = 64
)

// DefaultSubtitle is shown when a greeting was created without one
const DefaultSubtitle = "A little note, just for you"

// Greeting is a persisted sender/receiver message pair.
// Rows are append-only: the ID and CreatedAt never change after insert.
type Greeting struct {
	ID        string         `json:"id" bson:"_id"`
	Sender    string         `json:"sender" bson:"sender"`
	Receiver  string         `json:"receiver" bson:"receiver"`
	Message   string         `json:"message" bson:"message"`
	DayIndex  *int           `json:"day_index,omitempty" bson:"day_index,omitempty"`
	Extras    GreetingExtras `json:"extras" bson:"extras"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// GreetingExtras holds the optional display fields of a greeting page
type GreetingExtras struct {
	Subtitle string   `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Quote    string   `json:"quote,omitempty" bson:"quote,omitempty"`
	Memories []string `json:"memories,omitempty" bson:"memories,omitempty"`
}

// WithDefaults returns a copy with display defaults filled in.
// Memories is never nil on the returned value.
func (e GreetingExtras) WithDefaults() GreetingExtras {
	out := GreetingExtras{
		Subtitle: e.Subtitle,
		Quote:    e.Quote,
		Memories: make([]string, 0, len(e.Memories)),
	}
	if strings.TrimSpace(out.Subtitle) == "" {
		out.Subtitle = DefaultSubtitle
	}
	out.Memories = append(out.Memories, e.Memories...)
	return out
}

// GreetingResponse is the public representation returned by GET /api/get
type GreetingResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Message   string    `json:"message"`
	DayIndex  *int      `json:"day_index"`
	Subtitle  string    `json:"subtitle"`
	Quote     string    `json:"quote"`
	Memories  []string  `json:"memories"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a Greeting to a GreetingResponse with display defaults applied
func (g *Greeting) ToResponse() *GreetingResponse {
	extras := g.Extras.WithDefaults()
	return &GreetingResponse{
		ID:        g.ID,
		Sender:    g.Sender,
		Receiver:  g.Receiver,
		Message:   g.Message,
		DayIndex:  g.DayIndex,
		Subtitle:  extras.Subtitle,
		Quote:     extras.Quote,
		Memories:  extras.Memories,
		CreatedAt: g.CreatedAt.UTC(),
	}
}

// CreateGreetingRequest represents the POST /api/create request body
type CreateGreetingRequest struct {
	Sender   string   `json:"sender" validate:"required,max=100"`
	Receiver string   `json:"receiver" validate:"required,max=100"`
	Message  string   `json:"message" validate:"max=500"`
	DayIndex *int     `json:"day_index" validate:"omitempty,min=0,max=365"`
	Subtitle string   `json:"subtitle" validate:"max=150"`
	Quote    string   `json:"quote" validate:"max=300"`
	Memories []string `json:"memories" validate:"max=10,dive,max=200"`
}

// Normalize trims surrounding whitespace and drops blank memory lines.
// Message is stored exactly as sent. Validation runs on the normalized values.
func (r *CreateGreetingRequest) Normalize() {
	r.Sender = strings.TrimSpace(r.Sender)
	r.Receiver = strings.TrimSpace(r.Receiver)
	r.Subtitle = strings.TrimSpace(r.Subtitle)
	r.Quote = strings.TrimSpace(r.Quote)

	if r.Memories == nil {
		return
	}
	memories := make([]string, 0, len(r.Memories))
	for _, m := range r.Memories {
		if m = strings.TrimSpace(m); m != "" {
			memories = append(memories, m)
		}
	}
	r.Memories = memories
}

// ToGreeting builds the Greeting to persist under the given identifier
func (r *CreateGreetingRequest) ToGreeting(id string, createdAt time.Time) *Greeting {
	g := &Greeting{
		ID:       id,
		Sender:   r.Sender,
		Receiver: r.Receiver,
		Message:  r.Message,
		Extras: GreetingExtras{
			Subtitle: r.Subtitle,
			Quote:    r.Quote,
		},
		CreatedAt: createdAt.UTC(),
	}
	if r.DayIndex != nil {
		day := *r.DayIndex
		g.DayIndex = &day
	}
	if len(r.Memories) > 0 {
		g.Extras.Memories = append([]string(nil), r.Memories...)
	}
	return g
}

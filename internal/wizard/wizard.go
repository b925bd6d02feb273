// Package wizard models the multi-step create/edit flow for quotes and
// invoices as an explicit state machine: Apply is a pure transition
// function over an immutable State and a closed set of actions. Guard
// failures return the input state unchanged together with a *GuardError
// carrying the message to surface inline.
package wizard

import (
	"fmt"

	"github.com/maxvolts/maxvolts/internal/lineitems"
)

// Step identifies the wizard's current screen.
type Step string

const (
	StepSelectClient Step = "select_client"
	StepLineItems    Step = "line_items"
	StepSummary      Step = "summary"
)

// Kind distinguishes the quote flow from the invoice flow. The steps are
// the same; only the default header status differs.
type Kind string

const (
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
)

const maxNotesLen = 2000

// GuardError reports a blocked transition. The wizard never advances on a
// guard failure and the state is left exactly as it was.
type GuardError struct {
	Message string
}

func (e *GuardError) Error() string { return e.Message }

func guard(format string, args ...any) error {
	return &GuardError{Message: fmt.Sprintf(format, args...)}
}

// State is the complete wizard snapshot for one editing session. It is a
// value: Apply returns a new State and never mutates its input.
type State struct {
	Kind     Kind             `json:"kind"`
	Step     Step             `json:"step"`
	ClientID int64            `json:"client_id"`
	Items    []lineitems.Item `json:"items"`
	Status   string           `json:"status"`
	Notes    string           `json:"notes"`

	// Cached header totals, kept consistent with Items by the line item
	// collection on every mutation.
	TotalValue float64 `json:"total_value"`
	TotalVAT   float64 `json:"total_vat"`

	AddProductOpen  bool `json:"add_product_open"`
	EditProductOpen bool `json:"edit_product_open"`
	EditIndex       int  `json:"edit_index"`
}

// NewQuote returns the initial state for creating a quote.
func NewQuote() State {
	return State{Kind: KindQuote, Step: StepSelectClient, Status: "new"}
}

// NewInvoice returns the initial state for creating an invoice.
func NewInvoice() State {
	return State{Kind: KindInvoice, Step: StepSelectClient, Status: "new"}
}

// Resume rebuilds wizard state from a persisted header so editing follows
// the same flow as creation.
func Resume(kind Kind, clientID int64, status, notes string, items []lineitems.Item) State {
	col := lineitems.Load(items)
	return State{
		Kind:       kind,
		Step:       StepSelectClient,
		ClientID:   clientID,
		Status:     status,
		Notes:      notes,
		Items:      col.Items(),
		TotalValue: col.TotalValue(),
		TotalVAT:   col.TotalVAT(),
	}
}

// Action is one element of the closed transition set.
type Action interface {
	isAction()
}

type (
	// SetClient selects the client for the header.
	SetClient struct{ ClientID int64 }
	// Next advances one step, subject to the step's guard.
	Next struct{}
	// Back retreats one step; always allowed, never discards state.
	Back struct{}
	// SetNotes replaces the header notes.
	SetNotes struct{ Notes string }
	// SetStatus replaces the header status.
	SetStatus struct{ Status string }
	// OpenAddProduct opens the add-product modal on the line items step.
	OpenAddProduct struct{}
	// CloseAddProduct closes the add-product modal.
	CloseAddProduct struct{}
	// OpenEditProduct opens the edit modal for the line at Index.
	OpenEditProduct struct{ Index int }
	// CloseEditProduct closes the edit modal.
	CloseEditProduct struct{}
	// AddItem appends a priced line to the working set.
	AddItem struct{ Selection lineitems.Selection }
	// EditItem replaces the editable fields of the line at Index.
	EditItem struct {
		Index  int
		Update lineitems.Update
	}
	// RemoveItem removes the line at Index.
	RemoveItem struct{ Index int }
)

func (SetClient) isAction()        {}
func (Next) isAction()             {}
func (Back) isAction()             {}
func (SetNotes) isAction()         {}
func (SetStatus) isAction()        {}
func (OpenAddProduct) isAction()   {}
func (CloseAddProduct) isAction()  {}
func (OpenEditProduct) isAction()  {}
func (CloseEditProduct) isAction() {}
func (AddItem) isAction()          {}
func (EditItem) isAction()         {}
func (RemoveItem) isAction()       {}

// Apply executes one transition. On error the returned state equals s.
func Apply(s State, a Action) (State, error) {
	switch act := a.(type) {
	case SetClient:
		if s.Step != StepSelectClient {
			return s, guard("client can only be changed on the client step")
		}
		if act.ClientID <= 0 {
			return s, guard("please select a client")
		}
		s.ClientID = act.ClientID
		return s, nil

	case Next:
		return applyNext(s)

	case Back:
		return applyBack(s)

	case SetNotes:
		if len(act.Notes) > maxNotesLen {
			return s, guard("notes must be %d characters or fewer", maxNotesLen)
		}
		s.Notes = act.Notes
		return s, nil

	case SetStatus:
		s.Status = act.Status
		return s, nil

	case OpenAddProduct:
		if s.Step != StepLineItems {
			return s, guard("products can only be added on the line items step")
		}
		if s.EditProductOpen {
			return s, guard("close the edit product dialog first")
		}
		s.AddProductOpen = true
		return s, nil

	case CloseAddProduct:
		s.AddProductOpen = false
		return s, nil

	case OpenEditProduct:
		if s.Step != StepLineItems {
			return s, guard("products can only be edited on the line items step")
		}
		if s.AddProductOpen {
			return s, guard("close the add product dialog first")
		}
		if act.Index < 0 || act.Index >= len(s.Items) {
			return s, guard("no such line item")
		}
		s.EditProductOpen = true
		s.EditIndex = act.Index
		return s, nil

	case CloseEditProduct:
		s.EditProductOpen = false
		s.EditIndex = 0
		return s, nil

	case AddItem:
		if s.Step != StepLineItems {
			return s, guard("products can only be added on the line items step")
		}
		col := lineitems.Load(s.Items)
		if _, err := col.Add(act.Selection); err != nil {
			return s, &GuardError{Message: err.Error()}
		}
		return withItems(s, col), nil

	case EditItem:
		if s.Step != StepLineItems {
			return s, guard("products can only be edited on the line items step")
		}
		col := lineitems.Load(s.Items)
		if _, err := col.Edit(act.Index, act.Update); err != nil {
			return s, &GuardError{Message: err.Error()}
		}
		return withItems(s, col), nil

	case RemoveItem:
		if s.Step != StepLineItems {
			return s, guard("products can only be removed on the line items step")
		}
		col := lineitems.Load(s.Items)
		col.Remove(act.Index)
		return withItems(s, col), nil
	}

	return s, guard("unknown action")
}

func applyNext(s State) (State, error) {
	switch s.Step {
	case StepSelectClient:
		if s.ClientID <= 0 {
			return s, guard("please select a client before continuing")
		}
		s.Step = StepLineItems
		return s, nil
	case StepLineItems:
		if len(s.Items) == 0 {
			return s, guard("add at least one product before continuing")
		}
		// Leaving the line items step closes any open product dialog.
		s.AddProductOpen = false
		s.EditProductOpen = false
		s.Step = StepSummary
		return s, nil
	case StepSummary:
		return s, guard("already on the final step")
	}
	return s, guard("unknown step %q", s.Step)
}

func applyBack(s State) (State, error) {
	switch s.Step {
	case StepSelectClient:
		return s, guard("already on the first step")
	case StepLineItems:
		s.AddProductOpen = false
		s.EditProductOpen = false
		s.Step = StepSelectClient
		return s, nil
	case StepSummary:
		s.Step = StepLineItems
		return s, nil
	}
	return s, guard("unknown step %q", s.Step)
}

func withItems(s State, col *lineitems.Collection) State {
	s.Items = col.Items()
	s.TotalValue = col.TotalValue()
	s.TotalVAT = col.TotalVAT()
	return s
}

// ReadyToSubmit reports whether the state satisfies every step guard and
// may be handed to the persistence coordinator.
func (s State) ReadyToSubmit() bool {
	return s.Step == StepSummary && s.ClientID > 0 && len(s.Items) > 0
}

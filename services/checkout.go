package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"fabrino-server/metrics"

	log "github.com/sirupsen/logrus"
)

type CheckoutStep string

const (
	StepShipping   CheckoutStep = "shipping"
	StepPayment    CheckoutStep = "payment"
	StepProcessing CheckoutStep = "processing"
	StepSuccess    CheckoutStep = "success"
	StepFailed     CheckoutStep = "failed"
)

// Outcome records what happened to the order write of a finished checkout.
type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeLocalOnly Outcome = "local_only"
	OutcomeFailed    Outcome = "failed"
)

const (
	textVerifying   = "Verifying Transaction..."
	textSecuring    = "Securing Computational Power..."
	textSyncing     = "Synchronizing with the Fabrino Vault..."
	textFinalizing  = "Finalizing Print Sequence..."
	textSavingLocal = "Network error. Saving to local session..."
)

var (
	ErrInvalidTransition  = errors.New("checkout step does not allow this action")
	ErrShippingIncomplete = errors.New("first name, last name and address are required")
	ErrEmptyCart          = errors.New("cart is empty")
)

// ShippingForm is the delivery step of checkout.
type ShippingForm struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Complete reports whether the fields required to leave the shipping step are filled.
func (f ShippingForm) Complete() bool {
	return strings.TrimSpace(f.FirstName) != "" &&
		strings.TrimSpace(f.LastName) != "" &&
		strings.TrimSpace(f.Address) != ""
}

// CheckoutState is a snapshot of the sequencer.
type CheckoutState struct {
	Step        CheckoutStep `json:"step"`
	Form        ShippingForm `json:"form"`
	LoadingText string       `json:"loading_text,omitempty"`
	Total       float64      `json:"total"`
	Outcome     Outcome      `json:"outcome,omitempty"`
	OrderID     string       `json:"order_id,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// OrderPlacer persists a checkout.
type OrderPlacer interface {
	Place(ctx context.Context, req PlaceOrderRequest) (string, error)
}

// Pacer waits d or until ctx is done.
type Pacer func(ctx context.Context, d time.Duration) error

// SleepPacer is the production pacer.
func SleepPacer(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoPacer skips the cosmetic delays.
func NoPacer(context.Context, time.Duration) error { return nil }

// CheckoutOptions configure a sequencer.
type CheckoutOptions struct {
	// Orders persists completed checkouts. Nil means no backend: checkouts
	// finish as local-only.
	Orders OrderPlacer
	// Strict makes a failed order write end in StepFailed with the cart kept,
	// instead of StepSuccess with the failure recorded in the outcome.
	Strict bool
	Pace   Pacer
}

// CheckoutSequencer drives shipping → payment → processing → success for one
// session. payment → shipping is the only backward move.
type CheckoutSequencer struct {
	opts     CheckoutOptions
	cart     *CartLedger
	onChange func()

	mu    sync.Mutex
	state CheckoutState
}

func NewCheckoutSequencer(cart *CartLedger, opts CheckoutOptions) *CheckoutSequencer {
	if opts.Pace == nil {
		opts.Pace = SleepPacer
	}
	return &CheckoutSequencer{
		opts:  opts,
		cart:  cart,
		state: CheckoutState{Step: StepShipping},
	}
}

// State returns the current snapshot with the live cart total.
func (s *CheckoutSequencer) State() CheckoutState {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state.Step == StepShipping || state.Step == StepPayment {
		state.Total = s.cart.Subtotal()
	}
	return state
}

// Open starts a checkout. A finished checkout is reset; one in progress is resumed.
func (s *CheckoutSequencer) Open() CheckoutState {
	s.mu.Lock()
	if s.state.Step == StepSuccess || s.state.Step == StepFailed {
		s.state = CheckoutState{Step: StepShipping}
	}
	s.mu.Unlock()
	s.changed()
	return s.State()
}

// UpdateShipping replaces the shipping form. Only legal in the shipping step.
func (s *CheckoutSequencer) UpdateShipping(form ShippingForm) (CheckoutState, error) {
	if err := s.transition(func(st *CheckoutState) error {
		if st.Step != StepShipping {
			return ErrInvalidTransition
		}
		st.Form = form
		return nil
	}); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Continue moves shipping → payment once the required fields are filled.
func (s *CheckoutSequencer) Continue() (CheckoutState, error) {
	if err := s.transition(func(st *CheckoutState) error {
		if st.Step != StepShipping {
			return ErrInvalidTransition
		}
		if !st.Form.Complete() {
			return ErrShippingIncomplete
		}
		st.Step = StepPayment
		return nil
	}); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Back moves payment → shipping.
func (s *CheckoutSequencer) Back() (CheckoutState, error) {
	if err := s.transition(func(st *CheckoutState) error {
		if st.Step != StepPayment {
			return ErrInvalidTransition
		}
		st.Step = StepShipping
		return nil
	}); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Exit leaves a finished checkout and resets the sequencer.
func (s *CheckoutSequencer) Exit() error {
	return s.transition(func(st *CheckoutState) error {
		if st.Step != StepSuccess && st.Step != StepFailed {
			return ErrInvalidTransition
		}
		*st = CheckoutState{Step: StepShipping}
		return nil
	})
}

// Complete moves payment → processing, writes the order and finishes in
// success (or failed, in strict mode). A second call while processing is
// rejected with ErrInvalidTransition.
func (s *CheckoutSequencer) Complete(ctx context.Context, sessionID string, userID *string) (CheckoutState, error) {
	var req PlaceOrderRequest
	if err := s.transition(func(st *CheckoutState) error {
		if st.Step != StepPayment {
			return ErrInvalidTransition
		}
		items := s.cart.Items()
		if len(items) == 0 {
			return ErrEmptyCart
		}
		st.Step = StepProcessing
		st.LoadingText = textVerifying
		st.Total = Subtotal(items)
		req = PlaceOrderRequest{
			SessionID: sessionID,
			UserID:    userID,
			Shipping:  st.Form,
			Items:     items,
			Total:     st.Total,
		}
		return nil
	}); err != nil {
		return s.State(), err
	}

	// Finish the saga even if the caller disconnects.
	ctx = context.WithoutCancel(ctx)
	logger := log.WithFields(log.Fields{"session_id": sessionID, "items": len(req.Items), "total": req.Total})

	outcome := OutcomeLocalOnly
	var orderID string
	var placeErr error
	if s.opts.Orders != nil {
		orderID, placeErr = s.opts.Orders.Place(ctx, req)
		outcome = OutcomeRecorded
		if placeErr != nil {
			outcome = OutcomeFailed
		}
	}

	if placeErr == nil {
		s.pace(ctx, textSecuring, 800*time.Millisecond)
		s.pace(ctx, textSyncing, 800*time.Millisecond)
		s.pace(ctx, textFinalizing, 1000*time.Millisecond)
	} else {
		logger.WithError(placeErr).Error("Checkout order write failed")
		s.pace(ctx, textSavingLocal, 1500*time.Millisecond)
	}

	failed := placeErr != nil && s.opts.Strict
	s.mu.Lock()
	s.state.Outcome = outcome
	s.state.OrderID = orderID
	s.state.LoadingText = ""
	if placeErr != nil {
		s.state.Error = placeErr.Error()
	}
	if failed {
		s.state.Step = StepFailed
	} else {
		s.state.Step = StepSuccess
	}
	s.mu.Unlock()

	if !failed {
		s.cart.Clear()
	}
	s.changed()

	metrics.RecordCheckout(string(outcome))
	logger.WithFields(log.Fields{"outcome": outcome, "order_id": orderID}).Info("Checkout finished")
	return s.State(), nil
}

func (s *CheckoutSequencer) pace(ctx context.Context, text string, d time.Duration) {
	s.mu.Lock()
	s.state.LoadingText = text
	s.mu.Unlock()
	s.changed()
	_ = s.opts.Pace(ctx, d)
}

func (s *CheckoutSequencer) transition(fn func(*CheckoutState) error) error {
	s.mu.Lock()
	err := fn(&s.state)
	s.mu.Unlock()
	if err == nil {
		s.changed()
	}
	return err
}

func (s *CheckoutSequencer) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

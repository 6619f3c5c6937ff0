package workflow

import "github.com/hyperjump/benkyo/internal/models"

// Flashcards tracks navigation through a deck. There is no scoring.
type Flashcards struct {
	Phase    Phase              `json:"phase"`
	Deck     []models.Flashcard `json:"deck,omitempty"`
	Index    int                `json:"index"`
	Revealed bool               `json:"revealed"`
}

// Start begins a deck at its first card.
func (f Flashcards) Start(deck []models.Flashcard) (Flashcards, error) {
	if len(deck) == 0 {
		return f, ErrEmptyBank
	}
	return Flashcards{Phase: InProgress, Deck: deck}, nil
}

// Current returns the card on display.
func (f Flashcards) Current() (models.Flashcard, bool) {
	if f.Phase != InProgress || f.Index >= len(f.Deck) {
		return models.Flashcard{}, false
	}
	return f.Deck[f.Index], true
}

// Next moves to the following card, staying on the last one. The answer is hidden again.
func (f Flashcards) Next() (Flashcards, error) {
	if f.Phase != InProgress {
		return f, ErrNotInProgress
	}
	if f.Index < len(f.Deck)-1 {
		f.Index++
		f.Revealed = false
	}
	return f, nil
}

// Prev moves to the preceding card, staying on the first one. The answer is hidden again.
func (f Flashcards) Prev() (Flashcards, error) {
	if f.Phase != InProgress {
		return f, ErrNotInProgress
	}
	if f.Index > 0 {
		f.Index--
		f.Revealed = false
	}
	return f, nil
}

// Reveal toggles the answer of the current card.
func (f Flashcards) Reveal() (Flashcards, error) {
	if f.Phase != InProgress {
		return f, ErrNotInProgress
	}
	f.Revealed = !f.Revealed
	return f, nil
}

// End finishes the deck.
func (f Flashcards) End() (Flashcards, error) {
	switch f.Phase {
	case InProgress:
		f.Phase = Ended
		f.Revealed = false
		return f, nil
	case Ended:
		return f, nil
	default:
		return f, ErrNotInProgress
	}
}

// Close discards the deck.
func (f Flashcards) Close() Flashcards { return Flashcards{} }

// Reduce applies a to f.
func (f Flashcards) Reduce(a Action) (Flashcards, error) {
	switch a.Kind {
	case ActionStart:
		return f.Start(a.deck)
	case ActionNext:
		return f.Next()
	case ActionPrev:
		return f.Prev()
	case ActionReveal:
		return f.Reveal()
	case ActionEnd:
		return f.End()
	case ActionClose:
		return f.Close(), nil
	case ActionAnswer, ActionReview:
		return f, ErrUnsupported
	default:
		return f, unknown(a.Kind)
	}
}

package entitlement

import (
	"time"

	"app/internal/model"
)

// Verdict is the outcome class of an entitlement evaluation.
type Verdict int

const (
	// VerdictAllow grants access with no charge.
	VerdictAllow Verdict = iota
	// VerdictCharge grants access once Amount credits are deducted.
	VerdictCharge
	// VerdictDeny refuses access.
	VerdictDeny
)

// Decision is the result of evaluating one access request. Amount is set only
// for VerdictCharge, Reason only for VerdictDeny.
type Decision struct {
	Verdict Verdict
	Amount  int
	Reason  string
}

// ReasonInsufficientCredits is the deny reason when the balance cannot cover
// the content cost.
const ReasonInsufficientCredits = "insufficient credits"

// basicAllowList is the single authoritative set of content types a BASIC
// subscriber gets without charge. PDFs and videos stay locked for BASIC.
var basicAllowList = map[model.ContentType]bool{
	model.ContentMCQSimple:        true,
	model.ContentMCQAnalysis:      true,
	model.ContentNotesHTMLFree:    true,
	model.ContentNotesHTMLPremium: true,
	model.ContentNotesSimple:      true,
	model.ContentNotesPremium:     true,
}

// Evaluate decides whether user may access content at the given instant.
// Rules apply in priority order, first match wins:
//
//  1. admins and admin-impersonation sessions see everything
//  2. zero-cost content is free for everyone
//  3. a live subscription grants by level: ULTRA everything, BASIC only the
//     allow-list; anything else falls through to credits
//  4. a sufficient credit balance yields a charge
//  5. otherwise deny
//
// Premium status is recomputed from the subscription end date every time; a
// stored premium flag is never consulted. The function is pure: it mutates
// nothing and performs no I/O. impersonating marks a session where an admin
// is viewing the app as this user.
func Evaluate(user *model.User, content model.ContentDescriptor, now time.Time, impersonating bool) Decision {
	if user.IsAdmin() || impersonating {
		return Decision{Verdict: VerdictAllow}
	}
	if content.Cost == 0 {
		return Decision{Verdict: VerdictAllow}
	}
	if user.PremiumAt(now) {
		switch user.SubscriptionLevel {
		case model.LevelUltra:
			return Decision{Verdict: VerdictAllow}
		default:
			// An unset level counts as BASIC.
			if basicAllowList[content.Type] {
				return Decision{Verdict: VerdictAllow}
			}
		}
		// BASIC subscriber requesting a locked type: fall through to credits.
	}
	if user.Credits >= content.Cost {
		return Decision{Verdict: VerdictCharge, Amount: content.Cost}
	}
	return Decision{Verdict: VerdictDeny, Reason: ReasonInsufficientCredits}
}

// Package healing implements self-healing click recovery: when a click
// action's postcondition check fails, diagnose why and attempt a bounded
// number of recovery strategies before surfacing an error, mirroring
// digitus/healing.py.
package healing

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/nexusdaemon/nexus/internal/filters"
	"github.com/nexusdaemon/nexus/internal/providers"
)

// MaxRetries bounds the diagnose-recover-retry loop, matching MAX_RETRIES.
const MaxRetries = 2

const (
	waitEnabledStep = 300 * time.Millisecond
	waitEnabledMax  = 2 * time.Second
	waitPostDismiss = 300 * time.Millisecond
	waitForeground  = 200 * time.Millisecond
)

// FailureType classifies why a click didn't produce the expected effect.
type FailureType string

const (
	FailureElementMoved    FailureType = "element_moved"
	FailureElementDisabled FailureType = "element_disabled"
	FailureDialogBlocking  FailureType = "dialog_blocking"
	FailureWindowChanged   FailureType = "window_changed"
	FailureElementNotFound FailureType = "element_not_found"
	FailureUnknown         FailureType = "unknown"
)

// RecoveryKind is one of the recovery strategies heal_click can apply.
type RecoveryKind string

const (
	RecoveryRelocate      RecoveryKind = "relocate"
	RecoveryWaitEnabled   RecoveryKind = "wait_enabled"
	RecoveryRestoreWindow RecoveryKind = "restore_window"
	RecoveryDismissDialog RecoveryKind = "dismiss_dialog"
)

// Diagnosis is the result of diagnoseClickFailure.
type Diagnosis struct {
	FailureType    FailureType
	Recoverable    bool
	Recovery       RecoveryKind
	Details        string
	NewX, NewY     int
	Distance       int
	DialogName     string
	DismissOptions []string
	ExpectedWindow string
	CurrentWindow  string
	Suggestions    []string
}

// RecoveryResult is what one recovery attempt produced.
type RecoveryResult struct {
	Recovery      RecoveryKind
	Success       bool
	ClickedAt     [2]int
	WaitedSeconds float64
	Window        string
	Method        string
	Button        string
}

// HealResult is heal_click's return value.
type HealResult struct {
	Healed      bool
	Attempts    int
	Diagnosis   Diagnosis
	Recovery    *RecoveryResult
	NewPosition [2]int
	Suggestions []string
}

// Healer diagnoses and recovers from failed clicks against an accessibility
// provider and the screen input backend that drives the pointer.
type Healer struct {
	AX     providers.AccessibilityProvider
	Screen providers.ScreenProvider
}

func New(ax providers.AccessibilityProvider, screen providers.ScreenProvider) *Healer {
	return &Healer{AX: ax, Screen: screen}
}

// HealClick attempts to recover from a click at (x, y) on targetName that
// didn't produce the expected effect, retrying up to MaxRetries times.
func (h *Healer) HealClick(ctx context.Context, targetName string, x, y int, right, double bool, role string) HealResult {
	diagnosis := h.diagnoseClickFailure(ctx, targetName, x, y, role)
	if !diagnosis.Recoverable {
		return HealResult{Healed: false, Attempts: 0, Diagnosis: diagnosis, Suggestions: diagnosis.Suggestions}
	}

	recoveryType := diagnosis.Recovery
	for attempt := 0; attempt < MaxRetries; attempt++ {
		var recovery RecoveryResult
		healed := false

		switch recoveryType {
		case RecoveryRelocate:
			recovery = h.recoverRelocate(ctx, diagnosis.NewX, diagnosis.NewY, right, double)
			healed = recovery.Success

		case RecoveryWaitEnabled:
			recovery = h.recoverWaitEnabled(ctx, targetName, role)
			if recovery.Success {
				_ = h.Screen.Click(ctx, recovery.ClickedAt[0], recovery.ClickedAt[1], right, double)
				healed = true
			}

		case RecoveryRestoreWindow:
			recovery = h.recoverRestoreWindow(ctx, diagnosis.ExpectedWindow)
			if recovery.Success {
				if el, ok := h.refindAndClick(ctx, targetName, role, right, double); ok {
					recovery.ClickedAt = [2]int{el.Bounds.CenterX(), el.Bounds.CenterY()}
					healed = true
				}
			}

		case RecoveryDismissDialog:
			recovery = h.recoverDismissDialog(ctx, diagnosis.DismissOptions)
			if recovery.Success {
				time.Sleep(waitPostDismiss)
				if el, ok := h.refindAndClick(ctx, targetName, role, right, double); ok {
					recovery.ClickedAt = [2]int{el.Bounds.CenterX(), el.Bounds.CenterY()}
					healed = true
				}
			}
		}

		if healed {
			return HealResult{
				Healed:      true,
				Attempts:    attempt + 1,
				Diagnosis:   diagnosis,
				Recovery:    &recovery,
				NewPosition: recovery.ClickedAt,
			}
		}

		diagnosis = h.diagnoseClickFailure(ctx, targetName, x, y, role)
		if !diagnosis.Recoverable {
			break
		}
		recoveryType = diagnosis.Recovery
	}

	return HealResult{
		Healed:      false,
		Attempts:    MaxRetries,
		Diagnosis:   diagnosis,
		Suggestions: buildSuggestions(diagnosis),
	}
}

func (h *Healer) refindAndClick(ctx context.Context, targetName, role string, right, double bool) (providers.Element, bool) {
	fg, err := h.AX.ForegroundWindow(ctx)
	if err != nil {
		return providers.Element{}, false
	}
	matches := h.findByName(ctx, fg, targetName, role)
	if len(matches) == 0 {
		return providers.Element{}, false
	}
	target := matches[0]
	_ = h.Screen.Click(ctx, target.Bounds.CenterX(), target.Bounds.CenterY(), right, double)
	return target, true
}

func (h *Healer) findByName(ctx context.Context, _ providers.Window, targetName, role string) []providers.Element {
	els, err := h.AX.Elements(ctx, 6)
	if err != nil {
		return nil
	}
	out := make([]providers.Element, 0, 4)
	for _, el := range els {
		if !filters.MatchName(el.Name, targetName) {
			continue
		}
		if role != "" && el.Role != role {
			continue
		}
		out = append(out, el)
	}
	return out
}

// diagnoseClickFailure mirrors diagnose_click_failure's four-case chain.
func (h *Healer) diagnoseClickFailure(ctx context.Context, targetName string, x, y int, role string) Diagnosis {
	fg, _ := h.AX.ForegroundWindow(ctx)
	fgTitle := fg.Title

	over, hasOver, _ := h.AX.ElementAtPoint(ctx, x, y)
	matches := h.findByName(ctx, fg, targetName, role)

	// Case 1: element exists but moved, or exists and is disabled.
	if len(matches) > 0 {
		target := matches[0]
		newX, newY := target.Bounds.CenterX(), target.Bounds.CenterY()
		distance := math.Hypot(float64(x-newX), float64(y-newY))

		if distance > 10 {
			return Diagnosis{
				FailureType: FailureElementMoved,
				Recoverable: true,
				Recovery:    RecoveryRelocate,
				Details:     "element moved",
				NewX:        newX, NewY: newY,
				Distance: int(distance),
			}
		}
		if !target.Enabled {
			return Diagnosis{
				FailureType: FailureElementDisabled,
				Recoverable: true,
				Recovery:    RecoveryWaitEnabled,
				Details:     "element exists but is disabled",
			}
		}
	}

	// Case 2: a dialog/overlay is blocking the click point.
	if hasOver && (over.Role == "WindowControl" || over.Role == "PaneControl") && over.Name != fgTitle {
		dismiss := h.findDismissButtons(ctx, over)
		return Diagnosis{
			FailureType:    FailureDialogBlocking,
			Recoverable:    len(dismiss) > 0,
			Recovery:       recoveryIf(len(dismiss) > 0, RecoveryDismissDialog),
			Details:        "dialog is blocking the target",
			DialogName:     over.Name,
			DismissOptions: dismiss,
		}
	}

	// Case 3: element not found at all — check whether the window changed.
	if len(matches) == 0 {
		currentFg, _ := h.AX.ForegroundWindow(ctx)
		if currentFg.Title != fgTitle {
			return Diagnosis{
				FailureType:    FailureWindowChanged,
				Recoverable:    true,
				Recovery:       RecoveryRestoreWindow,
				Details:        "foreground window changed",
				ExpectedWindow: fgTitle,
				CurrentWindow:  currentFg.Title,
			}
		}

		all, _ := h.AX.Elements(ctx, 6)
		suggestions := SuggestSimilar(targetName, all)
		return Diagnosis{
			FailureType: FailureElementNotFound,
			Recoverable: false,
			Details:     "element not found in current window",
			Suggestions: suggestions,
		}
	}

	// Case 4: the target was found near the click point and enabled, and no
	// dialog blocks it — the cause is unknown.
	return Diagnosis{
		FailureType: FailureUnknown,
		Recoverable: false,
		Details:     "click did not produce expected result",
	}
}

func recoveryIf(ok bool, kind RecoveryKind) RecoveryKind {
	if ok {
		return kind
	}
	return ""
}

var dismissKeywords = map[string]bool{
	"close": true, "cancel": true, "ok": true, "dismiss": true,
	"no": true, "x": true, "got it": true, "later": true,
}

func (h *Healer) findDismissButtons(ctx context.Context, dialog providers.Element) []string {
	_ = dialog
	els, err := h.AX.Elements(ctx, 2)
	if err != nil {
		return nil
	}
	var out []string
	for _, el := range els {
		if el.Role != "ButtonControl" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(el.Name))
		if name == "" {
			continue
		}
		if dismissKeywords[name] {
			out = append(out, el.Name)
			continue
		}
		for kw := range dismissKeywords {
			if strings.Contains(name, kw) {
				out = append(out, el.Name)
				break
			}
		}
	}
	return out
}

// SuggestSimilar proposes nearby element names when a target name had no
// matches, for error messages and heal-attempted responses.
func SuggestSimilar(target string, elements []providers.Element) []string {
	targetLower := strings.ToLower(target)
	targetWords := wordSet(targetLower)
	var out []string
	for _, el := range elements {
		name := el.Name
		if name == "" {
			continue
		}
		nameLower := strings.ToLower(name)
		if sharesWord(targetWords, wordSet(nameLower)) ||
			strings.Contains(nameLower, targetLower) || strings.Contains(targetLower, nameLower) {
			out = append(out, name)
		}
		if len(out) >= 5 {
			break
		}
	}
	return out
}

func wordSet(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

func sharesWord(a, b map[string]bool) bool {
	for w := range a {
		if b[w] {
			return true
		}
	}
	return false
}

// --- Recovery strategies ---

func (h *Healer) recoverRelocate(ctx context.Context, x, y int, right, double bool) RecoveryResult {
	err := h.Screen.Click(ctx, x, y, right, double)
	return RecoveryResult{Recovery: RecoveryRelocate, Success: err == nil, ClickedAt: [2]int{x, y}}
}

func (h *Healer) recoverWaitEnabled(ctx context.Context, targetName, role string) RecoveryResult {
	var waited time.Duration
	for waited < waitEnabledMax {
		time.Sleep(waitEnabledStep)
		waited += waitEnabledStep

		fg, _ := h.AX.ForegroundWindow(ctx)
		matches := h.findByName(ctx, fg, targetName, role)
		if len(matches) > 0 && matches[0].Enabled {
			target := matches[0]
			return RecoveryResult{
				Recovery: RecoveryWaitEnabled, Success: true,
				WaitedSeconds: waited.Seconds(),
				ClickedAt:     [2]int{target.Bounds.CenterX(), target.Bounds.CenterY()},
			}
		}
	}
	return RecoveryResult{Recovery: RecoveryWaitEnabled, Success: false, WaitedSeconds: waited.Seconds()}
}

func (h *Healer) recoverRestoreWindow(ctx context.Context, expectedTitle string) RecoveryResult {
	if err := h.AX.SetForeground(ctx, expectedTitle); err != nil {
		return RecoveryResult{Recovery: RecoveryRestoreWindow, Success: false}
	}
	time.Sleep(waitForeground)
	fg, err := h.AX.ForegroundWindow(ctx)
	if err == nil && strings.Contains(strings.ToLower(fg.Title), strings.ToLower(expectedTitle)) {
		return RecoveryResult{Recovery: RecoveryRestoreWindow, Success: true, Window: fg.Title}
	}
	return RecoveryResult{Recovery: RecoveryRestoreWindow, Success: false}
}

// recoverDismissDialog tries Escape first, then re-probes whether the dialog
// is still present (rather than trusting a focus-name heuristic, which the
// original relied on and which can misfire when focus lands on an unrelated
// control). Falls back to clicking one of the known dismiss buttons.
func (h *Healer) recoverDismissDialog(ctx context.Context, dismissNames []string) RecoveryResult {
	_ = h.Screen.Key(ctx, "escape")
	time.Sleep(waitPostDismiss)

	if !h.dialogStillPresent(ctx, dismissNames) {
		return RecoveryResult{Recovery: RecoveryDismissDialog, Success: true, Method: "escape"}
	}

	fg, _ := h.AX.ForegroundWindow(ctx)
	for _, btnName := range dismissNames {
		matches := h.findByName(ctx, fg, btnName, "ButtonControl")
		if len(matches) == 0 {
			continue
		}
		target := matches[0]
		if err := h.Screen.Click(ctx, target.Bounds.CenterX(), target.Bounds.CenterY(), false, false); err == nil {
			time.Sleep(waitPostDismiss)
			return RecoveryResult{Recovery: RecoveryDismissDialog, Success: true, Method: "click", Button: btnName}
		}
	}
	return RecoveryResult{Recovery: RecoveryDismissDialog, Success: false}
}

// dialogStillPresent reports whether any of the dismiss button names can
// still be found among the current foreground window's elements. It returns
// false when the elements cannot be listed.
func (h *Healer) dialogStillPresent(ctx context.Context, dismissNames []string) bool {
	els, err := h.AX.Elements(ctx, 3)
	if err != nil {
		return false
	}
	for _, name := range dismissNames {
		for _, el := range els {
			if filters.MatchName(el.Name, name) {
				return true
			}
		}
	}
	return false
}

func buildSuggestions(d Diagnosis) []string {
	var out []string
	switch d.FailureType {
	case FailureElementNotFound:
		if len(d.Suggestions) > 0 {
			out = append(out, "Similar elements found: "+strings.Join(d.Suggestions, ", "))
		}
		out = append(out, "Try 'describe --focus interactive' to see available elements")
		out = append(out, "Try 'screenshot --mark' for visual element identification")

	case FailureDialogBlocking:
		if len(d.DismissOptions) > 0 {
			out = append(out, "Try click-element '"+d.DismissOptions[0]+"' to dismiss the dialog")
		} else {
			out = append(out, "Dialog '"+d.DialogName+"' has no obvious dismiss button")
			out = append(out, "Try pressing Escape or Alt+F4")
		}

	case FailureElementDisabled:
		out = append(out, "Element is disabled — may need a prerequisite action first")
		out = append(out, "Check form validation or required fields")

	case FailureWindowChanged:
		out = append(out, "Expected window '"+d.ExpectedWindow+"' is not in foreground")
		out = append(out, "Try 'windows' to list open windows")

	case FailureElementMoved:
		out = append(out, "UI layout may have shifted — element was relocated successfully")
	}
	return out
}

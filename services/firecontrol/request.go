package firecontrol

import (
	"fmt"
)

// RequestKind is the kind of mode-switch request.
type RequestKind int

// Request kinds.
const (
	// RequestAim starts automatic aiming: the turret tracks the bearing estimate and the launcher
	// and deflector follow their range tables.
	RequestAim RequestKind = iota
	// RequestStopAim stops the turret, resets the estimator and stops an automatic launcher.
	RequestStopAim
	// RequestTurretManual drives the turret with Value as raw power.
	RequestTurretManual
	// RequestLauncherManual drives the launcher with Value as raw power.
	RequestLauncherManual
	// RequestLauncherPreset runs the launcher at the preset velocity called Name.
	RequestLauncherPreset
	// RequestLauncherStop stops the launcher.
	RequestLauncherStop
	// RequestDeflectorPosition holds the deflector at Value.
	RequestDeflectorPosition
	// RequestDeflectorOpen moves the deflector fully out.
	RequestDeflectorOpen
	// RequestDeflectorClose tucks the deflector in.
	RequestDeflectorClose
	// RequestAllStop stops every actuator and closes the deflector.
	RequestAllStop
	// RequestSelectGoal switches to the goal called Name.
	RequestSelectGoal
)

var requestKindNames = map[RequestKind]string{
	RequestAim:               "aim",
	RequestStopAim:           "stop_aim",
	RequestTurretManual:      "turret_manual",
	RequestLauncherManual:    "launcher_manual",
	RequestLauncherPreset:    "launcher_preset",
	RequestLauncherStop:      "launcher_stop",
	RequestDeflectorPosition: "deflector_position",
	RequestDeflectorOpen:     "deflector_open",
	RequestDeflectorClose:    "deflector_close",
	RequestAllStop:           "all_stop",
	RequestSelectGoal:        "select_goal",
}

func (k RequestKind) String() string {
	if name, ok := requestKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("request(%d)", int(k))
}

// A Request asks the coordinator to change mode. Requests are applied in submission order at the
// start of the next cycle, so the last request touching an actuator wins.
type Request struct {
	Kind  RequestKind
	Value float64
	Name  string
}

func (r Request) String() string {
	switch r.Kind {
	case RequestTurretManual, RequestLauncherManual, RequestDeflectorPosition:
		return fmt.Sprintf("%s(%v)", r.Kind, r.Value)
	case RequestLauncherPreset, RequestSelectGoal:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Name)
	default:
		return r.Kind.String()
	}
}

// Inputs is the level state of the operator controls, sampled once per cycle. Transitions between
// two samples become requests.
type Inputs struct {
	// Shoot held aims; its release stops aiming.
	Shoot bool `json:"shoot"`
	// AllStop stops everything when pressed.
	AllStop bool `json:"all_stop"`
	// DeflectorOpen and DeflectorClose move the deflector to a preset when pressed.
	DeflectorOpen  bool `json:"deflector_open"`
	DeflectorClose bool `json:"deflector_close"`
	// LauncherPreset names the preset held down, empty when none. Its release stops the launcher.
	LauncherPreset string `json:"launcher_preset"`
}

// edges returns the requests caused by going from prev to cur.
func edges(prev, cur Inputs) []Request {
	var reqs []Request
	if cur.AllStop && !prev.AllStop {
		reqs = append(reqs, Request{Kind: RequestAllStop})
	}
	if cur.DeflectorOpen && !prev.DeflectorOpen {
		reqs = append(reqs, Request{Kind: RequestDeflectorOpen})
	}
	if cur.DeflectorClose && !prev.DeflectorClose {
		reqs = append(reqs, Request{Kind: RequestDeflectorClose})
	}
	if cur.LauncherPreset != prev.LauncherPreset {
		if cur.LauncherPreset == "" {
			reqs = append(reqs, Request{Kind: RequestLauncherStop})
		} else {
			reqs = append(reqs, Request{Kind: RequestLauncherPreset, Name: cur.LauncherPreset})
		}
	}
	switch {
	case cur.Shoot && !prev.Shoot:
		reqs = append(reqs, Request{Kind: RequestAim})
	case !cur.Shoot && prev.Shoot:
		reqs = append(reqs, Request{Kind: RequestStopAim})
	}
	return reqs
}

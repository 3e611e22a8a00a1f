// Package solver orchestrates the per-epoch pipeline that turns a pool of
// candidate observations into one validated PVT solution: signal
// filtering, orbit resolution, physical corrections, bootstrap,
// bias modeling, filtering and validation.
package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nav-solutions/gnss-rtk-go/pkg/almanac"
	"github.com/nav-solutions/gnss-rtk-go/pkg/ambiguity"
	"github.com/nav-solutions/gnss-rtk-go/pkg/bias"
	"github.com/nav-solutions/gnss-rtk-go/pkg/bancroft"
	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
	"github.com/nav-solutions/gnss-rtk-go/pkg/navigation"
	"github.com/nav-solutions/gnss-rtk-go/pkg/validate"
)

// earthAngularVelocity is the WGS84 Earth rotation rate, in rad/s.
const earthAngularVelocity = 7.2921151467e-5

// Errors surfaced by Solver.Resolve, per spec.md section 6.
var (
	ErrNotEnoughCandidates         = errors.New("solver: not enough input candidates")
	ErrNotEnoughPreFitCandidates   = errors.New("solver: not enough candidates satisfy the method's signal requirement")
	ErrNotEnoughPostFitCandidates  = errors.New("solver: not enough candidates survived orbit/bias/eclipse filtering")
	ErrUnresolvedAmbiguity         = errors.New("solver: PPP ambiguity unresolved for a required SV")
)

// OrbitProvider supplies a satellite's Antenna Phase Center position (and,
// when available, velocity) at a requested transmission epoch.
type OrbitProvider interface {
	NextAt(t time.Time, sv candidate.SV, interpOrder int) (candidate.OrbitalState, bool)
}

// BaseStation supplies a differential (RTK) remote observation for an SV
// and carrier at a requested epoch.
type BaseStation interface {
	Observe(t time.Time, sv candidate.SV, c carrier.Carrier) (candidate.Observation, bool)
}

type svState struct {
	t   time.Time
	pos candidate.Vector3
}

// Solver carries inter-epoch state (previous solution, previous SV
// positions for velocity, the navigation filter's carried state, the
// ambiguity tracker) across successive Resolve calls.
type Solver struct {
	cfg     config.Config
	orbits  OrbitProvider
	base    BaseStation
	tropo   bias.Model
	iono    bias.Model
	almanac almanac.Almanac

	nav       *navigation.Navigation
	validator validate.Validator
	ambTrack  *ambiguity.Tracker

	aprioriKnown bool
	apriori      candidate.Vector3

	prevT        time.Time
	prevSolution *navigation.PVTSolution
	prevSVState  map[candidate.SV]svState
}

// New builds a Solver. apriori may be nil, in which case the first
// epochs bootstrap their own position estimate via Bancroft.
func New(cfg config.Config, apriori *candidate.Vector3, orbits OrbitProvider, base BaseStation, tropo, iono bias.Model) *Solver {
	s := &Solver{
		cfg:         cfg,
		orbits:      orbits,
		base:        base,
		tropo:       tropo,
		iono:        iono,
		nav:         navigation.New(cfg.Filter),
		validator:   validate.New(cfg.Thresholds),
		ambTrack:    ambiguity.NewTracker(ambiguity.DefaultWindow),
		prevSVState: make(map[candidate.SV]svState),
	}
	if apriori != nil {
		s.aprioriKnown = true
		s.apriori = *apriori
	}
	return s
}

func minRequired(cfg config.Config) int {
	if cfg.SolutionType == config.TimeOnly {
		return 1
	}
	n := 4
	if cfg.FixedAltitudeM != nil {
		n--
	}
	return n
}

func signalConditionOK(cd candidate.Candidate, method config.Method) bool {
	switch method {
	case config.SPP:
		_, ok := cd.PreferredPseudoRange()
		return ok
	case config.CPP:
		return cd.CPPCompatible()
	case config.PPP:
		return cd.PPPCompatible()
	default:
		return false
	}
}

func filterBySNR(cd candidate.Candidate, minSNR float64) candidate.Candidate {
	kept := make([]candidate.Observation, 0, len(cd.Observations))
	for _, obs := range cd.Observations {
		if obs.SNRdBHz != nil && *obs.SNRdBHz < minSNR {
			continue
		}
		kept = append(kept, obs)
	}
	cd.Observations = kept
	return cd
}

// Resolve advances the solver by one epoch: t must be non-decreasing
// across calls, per spec.md section 5.
func (s *Solver) Resolve(t time.Time, pool []candidate.Candidate) (navigation.PVTSolution, error) {
	required := minRequired(s.cfg)
	if len(pool) < required {
		return navigation.PVTSolution{}, fmt.Errorf("have %d, need %d: %w", len(pool), required, ErrNotEnoughCandidates)
	}

	filtered := make([]candidate.Candidate, 0, len(pool))
	for _, cd := range pool {
		if s.cfg.Thresholds.MinSNRdBHz != nil {
			cd = filterBySNR(cd, *s.cfg.Thresholds.MinSNRdBHz)
		}
		if signalConditionOK(cd, s.cfg.Method) {
			filtered = append(filtered, cd)
		}
	}
	if len(filtered) < required {
		return navigation.PVTSolution{}, fmt.Errorf("have %d, need %d: %w", len(filtered), required, ErrNotEnoughPreFitCandidates)
	}

	if s.base != nil {
		for i := range filtered {
			for _, obs := range filtered[i].Observations {
				if remote, ok := s.base.Observe(t, filtered[i].SV, obs.Carrier); ok {
					filtered[i].RemoteObs = append(filtered[i].RemoteObs, remote)
				}
			}
		}
	}

	resolved := make([]candidate.Candidate, 0, len(filtered))
	for _, cd := range filtered {
		if err := cd.TransmissionTime(s.cfg); err != nil {
			continue
		}

		orbit, ok := s.orbits.NextAt(cd.TTx, cd.SV, s.cfg.InterpolationOrder)
		if !ok {
			continue
		}

		if s.cfg.Modeling.EarthRotation {
			orbit.Position = rotateEarth(orbit.Position, cd.DtTx)
		}

		if prev, ok := s.prevSVState[cd.SV]; ok {
			dt := cd.TTx.Sub(prev.t).Seconds()
			if dt > 0 {
				v := orbit.Position.Sub(prev.pos)
				velocity := candidate.Vector3{X: v.X / dt, Y: v.Y / dt, Z: v.Z / dt}
				orbit.Velocity = &velocity
			}
		}

		if s.aprioriKnown {
			attitude, _ := s.almanac.AzimuthElevationRange(s.apriori, orbit.Position)
			if !passesAttitudeGates(attitude, s.cfg.Thresholds) {
				continue
			}
			orbit = orbit.WithAttitude(attitude)
		}

		cd.Orbit = &orbit

		if s.cfg.Modeling.RelativisticClockBias && cd.ClockCorr != nil && cd.ClockCorr.NeedsRelativisticCorrection && orbit.Velocity != nil {
			relBias := relativisticClockBias(orbit.Position, *orbit.Velocity)
			corrected := cd.ClockCorr.Duration + time.Duration(relBias*float64(time.Second))
			cd.ClockCorr = &candidate.ClockCorrection{Duration: corrected, NeedsRelativisticCorrection: false}
		}

		s.prevSVState[cd.SV] = svState{t: cd.TTx, pos: orbit.Position}
		resolved = append(resolved, cd)
	}

	if s.cfg.Thresholds.MinSVSunlightRate != nil {
		sun := s.almanac.SunPosition(t)
		surviving := resolved[:0]
		for _, cd := range resolved {
			state := s.almanac.EclipseState(cd.Orbit.Position, sun)
			eclipsed := state.Kind == almanac.Umbra ||
				(state.Kind == almanac.Penumbra && state.Ratio < *s.cfg.Thresholds.MinSVSunlightRate)
			if !eclipsed {
				surviving = append(surviving, cd)
			}
		}
		resolved = surviving
	}

	if !s.aprioriKnown {
		sol, err := bancroft.Resolve(resolved)
		if err != nil {
			return navigation.PVTSolution{}, err
		}
		s.apriori = candidate.Vector3{X: sol.X, Y: sol.Y, Z: sol.Z}
		s.aprioriKnown = true

		for i := range resolved {
			attitude, _ := s.almanac.AzimuthElevationRange(s.apriori, resolved[i].Orbit.Position)
			orbit := resolved[i].Orbit.WithAttitude(attitude)
			resolved[i].Orbit = &orbit
		}
	}

	latDeg, lonDeg, altM := s.almanac.Geodetic(s.apriori)
	aprioriGeo := [3]float64{latDeg, lonDeg, altM}

	biased := resolved[:0]
	for _, cd := range resolved {
		if err := cd.ApplyModels(s.cfg.Method, s.tropo, s.iono, s.cfg.Modeling.TropoDelay, s.cfg.Modeling.IonoDelay, aprioriGeo); err != nil {
			continue
		}
		if s.cfg.Thresholds.MaxTropoBiasM != nil && cd.TropoBiasM != nil && math.Abs(*cd.TropoBiasM) > *s.cfg.Thresholds.MaxTropoBiasM {
			continue
		}
		if s.cfg.Thresholds.MaxIonoBiasM != nil && cd.IonoBiasM != nil && math.Abs(*cd.IonoBiasM) > *s.cfg.Thresholds.MaxIonoBiasM {
			continue
		}
		biased = append(biased, cd)
	}
	resolved = biased

	var ambiguities map[candidate.SV]ambiguity.Estimate
	if s.cfg.Method == config.PPP {
		s.ambTrack.Observe(t, resolved)
		ambiguities = s.ambTrack.Resolve(t)

		for _, cd := range resolved {
			if _, ok := ambiguities[cd.SV]; !ok {
				return navigation.PVTSolution{}, fmt.Errorf("%s: %w", cd.SV, ErrUnresolvedAmbiguity)
			}
		}
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Orbit.Attitude.ElevationDeg > resolved[j].Orbit.Attitude.ElevationDeg
	})

	if len(resolved) > required {
		resolved = resolved[:required]
	}
	if len(resolved) != required {
		return navigation.PVTSolution{}, fmt.Errorf("have %d, need %d: %w", len(resolved), required, ErrNotEnoughPostFitCandidates)
	}

	input, err := navigation.NewInput(s.apriori, aprioriGeo, s.cfg, resolved, s.tropo, s.iono)
	if err != nil {
		return navigation.PVTSolution{}, err
	}

	output, err := s.nav.Resolve(input)
	if err != nil {
		return navigation.PVTSolution{}, err
	}

	if err := s.validator.Validate(input, output, s.cfg.SolutionType); err != nil {
		return navigation.PVTSolution{}, err
	}
	s.nav.Validate()

	x := output.State.Estimate()
	solution := navigation.PVTSolution{
		T:             t,
		Position:      candidate.Vector3{X: s.apriori.X + x.AtVec(0), Y: s.apriori.Y + x.AtVec(1), Z: s.apriori.Z + x.AtVec(2)},
		Dt:            time.Duration(x.AtVec(3) / carrier.SpeedOfLight * float64(time.Second)),
		TimeScale:     s.cfg.TimeScale,
		Contributions: toContributions(input.SV),
		Q:             output.Q,
		GDOP:          output.GDOP,
		PDOP:          output.PDOP,
		TDOP:          output.TDOP,
		Ambiguities:   toAmbiguitySnapshot(ambiguities),
	}

	if s.prevSolution == nil {
		s.prevSolution = &solution
		s.prevT = t
		return navigation.PVTSolution{}, &validate.InvalidatedSolutionError{Cause: validate.FirstSolution}
	}

	dt := t.Sub(s.prevT).Seconds()
	if dt > 0 {
		d := solution.Position.Sub(s.prevSolution.Position)
		solution.Velocity = candidate.Vector3{X: d.X / dt, Y: d.Y / dt, Z: d.Z / dt}
		solution.DDt = (s.prevSolution.Dt.Seconds() - solution.Dt.Seconds()) / dt
	}

	s.prevSolution = &solution
	s.prevT = t

	finalize(&solution, s.cfg, s.apriori)
	return solution, nil
}

func toContributions(sv map[candidate.SV]navigation.SVInput) map[candidate.SV]navigation.SVInput {
	out := make(map[candidate.SV]navigation.SVInput, len(sv))
	for k, v := range sv {
		out[k] = v
	}
	return out
}

func toAmbiguitySnapshot(m map[candidate.SV]ambiguity.Estimate) map[candidate.SV]float64 {
	out := make(map[candidate.SV]float64, len(m))
	for k, v := range m {
		out[k] = v.Cycles
	}
	return out
}

func finalize(solution *navigation.PVTSolution, cfg config.Config, apriori candidate.Vector3) {
	if cfg.FixedAltitudeM != nil {
		solution.Position.Z = apriori.Z - *cfg.FixedAltitudeM
		solution.Velocity.Z = 0
	}
	if cfg.SolutionType == config.TimeOnly {
		solution.Position = candidate.Vector3{}
		solution.Velocity = candidate.Vector3{}
	}
}

func passesAttitudeGates(attitude candidate.Attitude, thresholds config.Thresholds) bool {
	if thresholds.MinSVElevationDeg != nil && attitude.ElevationDeg < *thresholds.MinSVElevationDeg {
		return false
	}
	if thresholds.MinSVAzimuthDeg != nil && attitude.AzimuthDeg < *thresholds.MinSVAzimuthDeg {
		return false
	}
	if thresholds.MaxSVAzimuthDeg != nil && attitude.AzimuthDeg > *thresholds.MaxSVAzimuthDeg {
		return false
	}
	return true
}

func rotateEarth(pos candidate.Vector3, dtTx time.Duration) candidate.Vector3 {
	theta := earthAngularVelocity * dtTx.Seconds()
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	return candidate.Vector3{
		X: cosT*pos.X + sinT*pos.Y,
		Y: -sinT*pos.X + cosT*pos.Y,
		Z: pos.Z,
	}
}

// relativisticClockBias returns the periodic relativistic clock
// correction −2·(r⃗·v⃗)/c², the closed-form equivalent of the
// eccentricity/eccentric-anomaly formulation that avoids extracting
// Keplerian elements from the state vector.
func relativisticClockBias(position, velocity candidate.Vector3) float64 {
	dot := position.X*velocity.X + position.Y*velocity.Y + position.Z*velocity.Z
	return -2.0 * dot / (carrier.SpeedOfLight * carrier.SpeedOfLight)
}

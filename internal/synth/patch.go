package synth

import "math"

// Tempo grid.
const (
	tempoBPM     = 120
	beatSeconds  = 60.0 / tempoBPM
	halfBeatSecs = beatSeconds / 2
)

// Sub-bass layer.
const (
	subBassHz   = 40
	subBassGain = 0.4
)

// Kick layer: decaying envelope over a downward frequency sweep.
const (
	kickGain     = 0.5
	kickDecay    = 10
	kickStartHz  = 150
	kickSweepExp = 30
)

// Arpeggio layer.
const (
	arpeggioGain  = 0.2
	arpeggioDecay = 5
)

// Shimmer layer.
const (
	shimmerGain  = 0.1
	shimmerDecay = 20
)

// Master bus.
const (
	masterGain = 0.8
	fullScale  = math.MaxInt16
)

// arpeggioNotes is A3, C4, D4, E4, one per beat.
var arpeggioNotes = [...]float64{220, 261.63, 293.66, 329.63}

const twoPi = 2 * math.Pi

func subBass(t float64) float64 {
	return math.Sin(twoPi*subBassHz*t) * subBassGain
}

func kick(timeInBeat float64) float64 {
	envelope := math.Exp(-timeInBeat * kickDecay)
	frequency := kickStartHz * math.Exp(-timeInBeat*kickSweepExp)

	return math.Sin(twoPi*frequency*timeInBeat) * envelope * kickGain
}

func arpeggio(t float64, beatIndex int) float64 {
	note := arpeggioNotes[beatIndex%len(arpeggioNotes)]
	envelope := math.Exp(-math.Mod(t, halfBeatSecs) * arpeggioDecay)

	return math.Sin(twoPi*note*t) * envelope * arpeggioGain
}

// shimmer scales noise, a uniform value in [-1, 1), by the beat envelope.
func shimmer(timeInBeat, noise float64) float64 {
	return noise * math.Exp(-timeInBeat*shimmerDecay) * shimmerGain
}

// signal mixes all layers at time t and returns the limited value in [-1, 1].
func signal(t, noise float64) float64 {
	beatIndex := int(math.Floor(t / beatSeconds))
	timeInBeat := math.Mod(t, beatSeconds)

	mixed := subBass(t) + kick(timeInBeat) + arpeggio(t, beatIndex) + shimmer(timeInBeat, noise)

	return limit(mixed * masterGain)
}

func limit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

func quantize(x float64) int16 {
	return int16(math.Round(limit(x) * fullScale))
}

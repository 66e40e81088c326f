package scoring

import (
	"math"

	"github.com/upb/llm-router/models"
)

// DifficultyMapper projects QueryFeatures onto a difficulty vector in the
// same latent space as the ability vectors. The exact mapping is a
// replaceable strategy; the engine only requires the output length to
// match the checkpoint's dimension count.
type DifficultyMapper interface {
	Map(features models.QueryFeatures, dimensions int) []float64
}

// HeuristicMapper is the default difficulty mapping. Each latent dimension
// tracks one feature, normalized to roughly [0,1]:
//
//	0: prompt length        log-scaled token estimate
//	1: complexity           as extracted
//	2: code presence        1 when code detected, scaled by line count
//	3: keyword breadth      matched domain keywords / 4
//	4: tool use             1 when tools are likely needed
//	5: conversation depth   turns / 10
//	6: ambiguity            as extracted
//	7+: zero padding when the checkpoint carries more dimensions
//
// When the checkpoint carries fewer dimensions the vector is truncated;
// earlier dimensions are the stronger difficulty signals.
type HeuristicMapper struct{}

// NewHeuristicMapper creates the default difficulty mapper
func NewHeuristicMapper() *HeuristicMapper {
	return &HeuristicMapper{}
}

// Map projects features onto a difficulty vector of the given length
func (m *HeuristicMapper) Map(features models.QueryFeatures, dimensions int) []float64 {
	raw := []float64{
		math.Min(math.Log1p(float64(features.TokenEstimate))/8.0, 1.0),
		features.Complexity,
		codeSignal(features),
		math.Min(float64(len(features.DomainKeywords))/4.0, 1.0),
		boolSignal(features.NeedsTools),
		math.Min(float64(features.ConversationDepth)/10.0, 1.0),
		features.Ambiguity,
	}

	vec := make([]float64, dimensions)
	copy(vec, raw)
	return vec
}

// codeSignal scales the code-presence flag by how much code there is
func codeSignal(features models.QueryFeatures) float64 {
	if !features.HasCode {
		return 0
	}
	return math.Min(0.5+float64(features.CodeLines)/100.0, 1.0)
}

func boolSignal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

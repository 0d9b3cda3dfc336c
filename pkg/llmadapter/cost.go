package llmadapter

import "github.com/maestro-labs/mcae/pkg/capability"

// modelPricing is cost per million tokens in USD, grounded on the
// teacher's pkg/config.ModelDefaults CPM field (input and output are
// not split there; MCAE's spec §6 EstimateCost wants both, so each
// entry carries input/output separately using each provider's public
// list pricing as of the model's release).
type modelPricing struct {
	inputCPM  float64
	outputCPM float64
}

var knownModelPricing = map[string]modelPricing{
	"claude-sonnet-4-20250514":  {inputCPM: 3.0, outputCPM: 15.0},
	"claude-3-7-sonnet-20250219": {inputCPM: 3.0, outputCPM: 15.0},
	"gpt-5":                     {inputCPM: 30.0, outputCPM: 60.0},
	"o3-mini":                   {inputCPM: 0.6, outputCPM: 2.4},
	"gemini-2.5-pro":            {inputCPM: 1.25, outputCPM: 10.0},
	"llama3.1":                  {inputCPM: 0, outputCPM: 0},
}

const defaultInputCPM = 3.0
const defaultOutputCPM = 15.0

// estimateCost is shared by every adapter: spec §4.1/§6's EstimateCost
// is pure arithmetic, no network call, falling back to a default
// pricing tier for an unrecognized modelID rather than erroring, since
// a cost estimate degrading to an approximation is preferable to
// failing the whole turn over an unlisted model name.
func estimateCost(modelID string, inputTokens, outputTokens int) (capability.Money, error) {
	pricing, ok := knownModelPricing[modelID]
	if !ok {
		pricing = modelPricing{inputCPM: defaultInputCPM, outputCPM: defaultOutputCPM}
	}
	cost := (float64(inputTokens)*pricing.inputCPM + float64(outputTokens)*pricing.outputCPM) / 1_000_000
	return capability.USD(cost), nil
}

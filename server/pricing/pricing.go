package pricing

const (
	FREE_ACTIVATIONS = 100
	TOP_TIER_PAISE   = 29900
)

type tier struct {
	upTo        int
	amountPaise int64
}

// Activation numbers up to and including upTo pay amountPaise.
var tiers = []tier{
	{upTo: FREE_ACTIVATIONS, amountPaise: 0},
	{upTo: 500, amountPaise: 9900},
	{upTo: 1000, amountPaise: 19900},
}

type Quote struct {
	IsFree           bool  `json:"isFree"`
	AmountPaise      int64 `json:"amountPaise"`
	ActivationNumber int   `json:"activationNumber"`
}

// PriceFor returns the activation price in paise for the n-th activation.
func PriceFor(n int) int64 {
	if n < 1 {
		n = 1
	}

	for _, t := range tiers {
		if n <= t.upTo {
			return t.amountPaise
		}
	}
	return TOP_TIER_PAISE
}

func QuoteFor(n int) Quote {
	if n < 1 {
		n = 1
	}

	amount := PriceFor(n)
	return Quote{IsFree: amount == 0, AmountPaise: amount, ActivationNumber: n}
}

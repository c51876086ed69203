package domain

// CartConfig is fixed for the lifetime of a cart engine.
type CartConfig struct {
	TaxRate            float64
	DeliveryThreshold  float64
	DeliveryFee        float64
	MaxQuantityPerItem int
}

func DefaultConfig() CartConfig {
	return CartConfig{
		TaxRate:            0.10,
		DeliveryThreshold:  50,
		DeliveryFee:        5,
		MaxQuantityPerItem: 20,
	}
}

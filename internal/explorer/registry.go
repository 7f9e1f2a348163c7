package explorer

import (
	"github.com/orthoplus/crypto-settlement/internal/model"
)

// Registry maps each supported coin to the explorer that can observe it.
type Registry struct {
	explorers map[model.CryptoCurrency]IExplorer
}

func NewRegistry() *Registry {
	return &Registry{
		explorers: map[model.CryptoCurrency]IExplorer{},
	}
}

func (r *Registry) Register(coin model.CryptoCurrency, exp IExplorer) {
	r.explorers[coin] = exp
}

func (r *Registry) ForCoin(coin model.CryptoCurrency) (IExplorer, error) {
	exp, ok := r.explorers[coin]
	if !ok {
		return nil, &model.ValidationError{Field: "cryptocurrency", Reason: "no explorer registered for " + string(coin)}
	}
	return exp, nil
}

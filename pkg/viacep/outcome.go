package viacep

import "context"

// Status tags the two possible results of a lookup.
type Status string

const (
	// StatusSuccess means the service returned an address payload.
	StatusSuccess Status = "success"

	// StatusFailure covers every other result: malformed key, unknown
	// CEP, exhausted retries, transport errors.
	StatusFailure Status = "failure"
)

// Address is the flat payload returned by ViaCEP for a known CEP.
type Address struct {
	Cep          string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Unit         string `json:"unidade"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	StateCode    string `json:"uf"`
	StateName    string `json:"estado"`
	Region       string `json:"regiao"`
	IBGE         string `json:"ibge"`
	GIA          string `json:"gia"`
	AreaCode     string `json:"ddd"`
	SIAFI        string `json:"siafi"`
}

// Outcome is the immutable per-key result of one lookup. Exactly one of
// Address and Message is meaningful: Address on success, Message on
// failure.
type Outcome struct {
	// Key is the normalized CEP the lookup was issued for. Malformed
	// inputs keep their normalized form here so the caller can still
	// correlate the outcome with its source row.
	Key     string
	Status  Status
	Address *Address
	Message string
}

// Success reports whether the outcome carries an address payload.
func (o Outcome) Success() bool {
	return o.Status == StatusSuccess
}

// Resolver is anything that resolves a CEP to an Outcome. The production
// implementation is Client; tests inject deterministic stubs.
type Resolver interface {
	Fetch(ctx context.Context, key string) Outcome
}

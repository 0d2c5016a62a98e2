package types

// VectorMatch is one similarity hit; higher Score means closer.
type VectorMatch struct {
	ID    string
	Score float64
}

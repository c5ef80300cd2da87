package domain

import "context"

// QueryPort is the public read port exposed by the citations module
type QueryPort interface {
	Recent(ctx context.Context, q RecentQuery) ([]Citation, error)
	Status(ctx context.Context) (ScannerStatus, error)
}

package repository

import (
	"context"

	"tickerpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// InstrumentRepository reads the symbol universe the linker works over.
type InstrumentRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewInstrumentRepository(pool PgxPool, tracer trace.Tracer) *InstrumentRepository {
	return &InstrumentRepository{pool: pool, tracer: tracer}
}

func (r *InstrumentRepository) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	_, span := r.tracer.Start(ctx, "instrument-repo.list-instruments")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT symbol, name, aliases, category
FROM instruments
ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Instrument
	for rows.Next() {
		var inst domain.Instrument
		if err := rows.Scan(&inst.Symbol, &inst.Name, &inst.Aliases, &inst.Category); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

package source

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/zonemap/internal/geometry"
	"github.com/woozymasta/zonemap/internal/pipeline"
)

// Queries select one layer from PostgreSQL. Both queries receive Args.
//
// Entities must return the columns id, x, y, longitude, latitude and
// attributes (jsonb), any of them nullable except id. Vertices must return
// owner_id, sequence, x and y. Ids are compared as text, so uuid columns
// should be cast with ::text. An empty Vertices query loads no rings.
type Queries struct {
	Entities string
	Vertices string
	Args     []any
}

// Postgres loads entities through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn and checks that the server answers.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Postgres{pool: pool}, nil
}

// Close releases all pool connections.
func (p *Postgres) Close() {
	p.pool.Close()
}

type entityRow struct {
	ID         string
	X, Y       *float64
	Lon, Lat   *float64
	Attributes map[string]any
}

type vertexRow struct {
	OwnerID  string
	Sequence int
	X, Y     float64
}

// Load runs both queries and assembles the entities in the order the
// entities query returned them.
func (p *Postgres) Load(ctx context.Context, q Queries) ([]pipeline.Entity, error) {
	entities, err := p.queryEntities(ctx, q)
	if err != nil {
		return nil, err
	}

	var vertices []vertexRow
	if q.Vertices != "" {
		vertices, err = p.queryVertices(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	log.Debug().
		Int("entities", len(entities)).
		Int("vertices", len(vertices)).
		Msg("Loaded rows from postgres")

	return assemble(entities, vertices)
}

func (p *Postgres) queryEntities(ctx context.Context, q Queries) ([]entityRow, error) {
	rows, err := p.pool.Query(ctx, q.Entities, q.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "query entities")
	}
	defer rows.Close()

	var out []entityRow
	for rows.Next() {
		var (
			r  entityRow
			id any
		)
		if err := rows.Scan(&id, &r.X, &r.Y, &r.Lon, &r.Lat, &r.Attributes); err != nil {
			return nil, errors.Wrap(err, "scan entity row")
		}
		r.ID = formatID(id)
		out = append(out, r)
	}

	return out, errors.Wrap(rows.Err(), "read entity rows")
}

func (p *Postgres) queryVertices(ctx context.Context, q Queries) ([]vertexRow, error) {
	rows, err := p.pool.Query(ctx, q.Vertices, q.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "query vertices")
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vertexRow, error) {
		var (
			v     vertexRow
			owner any
		)
		err := row.Scan(&owner, &v.Sequence, &v.X, &v.Y)
		v.OwnerID = formatID(owner)
		return v, err
	})
	return out, errors.Wrap(err, "scan vertex rows")
}

// assemble attaches vertex rows to their owners. Vertices of unknown owners
// are ignored. Duplicate ids fail the whole set since their vertices cannot
// be attributed.
func assemble(entities []entityRow, vertices []vertexRow) ([]pipeline.Entity, error) {
	index := make(map[string]int, len(entities))
	out := make([]pipeline.Entity, len(entities))

	for i, r := range entities {
		if _, dup := index[r.ID]; dup {
			return nil, errors.Wrapf(ErrInvalidRecord, "duplicate entity id %q", r.ID)
		}
		index[r.ID] = i

		out[i] = pipeline.Entity{ID: r.ID, Attributes: r.Attributes}
		out[i].Planar, out[i].Geographic, out[i].Err = positions(r.X, r.Y, r.Lon, r.Lat)
	}

	orphans := 0
	for _, v := range vertices {
		i, ok := index[v.OwnerID]
		if !ok {
			orphans++
			continue
		}
		out[i].Ring = append(out[i].Ring, geometry.Vertex{Sequence: v.Sequence, X: v.X, Y: v.Y})
	}
	if orphans > 0 {
		log.Debug().Int("vertices", orphans).Msg("Ignored vertices without a matching entity")
	}

	return out, nil
}

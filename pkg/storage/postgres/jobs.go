package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivertype"
)

// AddJob enqueues a River job. Inside a transaction the job is inserted with
// InsertTx so it only becomes visible when the listing change it belongs to
// commits; otherwise it is inserted directly through the *sql.DB.
func (p *PgSQL) AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	var (
		res *rivertype.JobInsertResult
		err error
	)

	switch db := p.DB.(type) {
	case *sql.Tx:
		var client *river.Client[*sql.Tx]
		client, err = river.NewClient[*sql.Tx](riverdatabasesql.New(nil), &river.Config{})
		if err != nil {
			return false, fmt.Errorf("could not create river queue client: %w", err)
		}
		res, err = client.InsertTx(ctx, db, args, opts)
	case *sql.DB:
		var client *river.Client[*sql.Tx]
		client, err = river.NewClient(riverdatabasesql.New(db), &river.Config{})
		if err != nil {
			return false, fmt.Errorf("could not create river queue client: %w", err)
		}
		res, err = client.Insert(ctx, args, opts)
	default:
		return false, fmt.Errorf("unsupported executor %T for job insertion", p.DB)
	}
	if err != nil {
		return false, fmt.Errorf("could not insert job %s: %w", args.Kind(), err)
	}

	return !res.UniqueSkippedAsDuplicate, nil
}

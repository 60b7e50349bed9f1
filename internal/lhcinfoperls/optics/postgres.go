package optics

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/armadaproject/popcon/internal/common/popcontext"
	"github.com/armadaproject/popcon/internal/common/poperrors"
)

const (
	MachineParamsTable = "PPS_LHC_MACHINE_PARAMS"

	updateTimeColumn     = "DIP_UPDATE_TIME"
	lumiSectionColumn    = "LUMI_SECTION"
	runNumberColumn      = "RUN_NUMBER"
	crossingAngleXColumn = "XING_ANGLE_P5_X_URAD"
	crossingAngleYColumn = "XING_ANGLE_P5_Y_URAD"
	betaStarXColumn      = "BETA_STAR_P5_X_M"
	betaStarYColumn      = "BETA_STAR_P5_Y_M"
)

var dialect = goqu.Dialect("postgres")

// PostgresSource reads measurements from the machine parameters table of a Postgres schema.
type PostgresSource struct {
	db     *pgxpool.Pool
	schema string
}

func NewPostgresSource(db *pgxpool.Pool, schema string) *PostgresSource {
	return &PostgresSource{db: db, schema: schema}
}

// ForEachRow runs the query for [begin, end) inside a read-only transaction and streams the rows to fn.
func (s *PostgresSource) ForEachRow(ctx *popcontext.Context, begin, end time.Time, fn func(Row) error) error {
	sql, args, err := selectRowsQuery(s.schema, begin, end)
	if err != nil {
		return err
	}
	ctx.Log.Debugf("Optics query %s %v", sql, args)

	err = pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return errors.WithStack(err)
		}
		defer rows.Close()
		for rows.Next() {
			var row Row
			if err := rows.Scan(
				&row.UpdateTime,
				&row.LumiSection,
				&row.RunNumber,
				&row.CrossingAngleX,
				&row.CrossingAngleY,
				&row.BetaStarX,
				&row.BetaStarY,
			); err != nil {
				return errors.WithStack(err)
			}
			if err := fn(row); err != nil {
				return err
			}
		}
		return errors.WithStack(rows.Err())
	})
	if err != nil {
		return errors.WithStack(&poperrors.ErrQueryFailed{
			Service:   "optics",
			Resource:  s.schema + "." + MachineParamsTable,
			Message:   err.Error(),
			Permanent: isPermanent(err),
		})
	}
	return nil
}

// isPermanent reports whether err comes from Postgres rejecting the query itself: a missing schema, table or column,
// or missing privileges. These fail the same way on every query until the configuration is fixed.
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.InvalidSchemaName,
		pgerrcode.UndefinedTable,
		pgerrcode.UndefinedColumn,
		pgerrcode.InsufficientPrivilege,
		pgerrcode.InvalidAuthorizationSpecification,
		pgerrcode.InvalidPassword:
		return true
	}
	return false
}

func selectRowsQuery(schema string, begin, end time.Time) (string, []interface{}, error) {
	sql, args, err := dialect.
		From(goqu.S(schema).Table(MachineParamsTable)).
		Prepared(true).
		Select(
			goqu.C(updateTimeColumn),
			goqu.C(lumiSectionColumn),
			goqu.C(runNumberColumn),
			goqu.C(crossingAngleXColumn),
			goqu.C(crossingAngleYColumn),
			goqu.C(betaStarXColumn),
			goqu.C(betaStarYColumn),
		).
		Where(
			goqu.C(updateTimeColumn).Gte(begin.UTC()),
			goqu.C(updateTimeColumn).Lt(end.UTC()),
		).
		Order(goqu.C(updateTimeColumn).Asc()).
		ToSQL()
	return sql, args, errors.WithStack(err)
}

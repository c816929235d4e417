package department

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"kvcheck/internal/datasource"
)

const (
	orgUnitQuery = `
		SELECT
			distinct lisid, losid, enhnavn, afdtype, afdtype_txt
		FROM
			[BuMasterdata].[dbo].[VIEW_MD_STAMDATA_AKTUEL]`

	payrollUnitQuery = `
		SELECT
			SDafdID, LOSID
		FROM
			[Personale].[sd].[Organisation]`

	contactQuery = `
		SELECT
			v1.afdemail AS AF_email,
			v2.LOSID
		FROM
			(
			SELECT
				adm_faelles_id, lisid
			FROM
				[BuMasterdata].[dbo].[MD_ADM_FAELLESSKAB]
			WHERE
				STARTDATO <= GETDATE()
				and SLUTDATO > GETDATE()
			) t
		LEFT JOIN
			[BuMasterdata].[dbo].[VIEW_MD_STAMDATA_AKTUEL] v1 ON t.adm_faelles_id = v1.lisid
		LEFT JOIN
			[BuMasterdata].[dbo].[VIEW_MD_STAMDATA_AKTUEL] v2 ON t.lisid = v2.lisid`
)

// Resolver reads both department directories and the AF contact mapping.
type Resolver struct {
	exec   datasource.Executor
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver constructs a Resolver on top of exec.
func NewResolver(exec datasource.Executor, opts ...Option) *Resolver {
	r := &Resolver{exec: exec, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Organizational returns org units, restricted to categories when given.
func (r *Resolver) Organizational(ctx context.Context, categories ...int) ([]OrgUnit, error) {
	query := orgUnitQuery
	if len(categories) > 0 {
		query += "\n\t\tWHERE\n\t\t\tafdtype in " + datasource.IntList(categories...)
	}

	rows, err := r.exec.Query(ctx, datasource.TargetMasterdata, query)
	if err != nil {
		return nil, err
	}

	units := make([]OrgUnit, 0, len(rows))
	for _, row := range rows {
		u := OrgUnit{}
		u.LISID, _ = row.Int("lisid")
		if losID, ok := row.Int("losid"); ok {
			u.LOSID = &losID
		}
		u.Name, _ = row.String("enhnavn")
		u.Category, _ = row.Int("afdtype")
		u.CategoryText, _ = row.String("afdtype_txt")
		units = append(units, u)
	}
	return units, nil
}

// Payroll returns payroll departments, restricted to losIDs when given.
func (r *Resolver) Payroll(ctx context.Context, losIDs ...int) ([]PayrollUnit, error) {
	query := payrollUnitQuery
	if len(losIDs) > 0 {
		query += "\n\t\tWHERE\n\t\t\tLOSID in " + datasource.IntList(losIDs...)
	}

	rows, err := r.exec.Query(ctx, datasource.TargetPayroll, query)
	if err != nil {
		return nil, err
	}

	units := make([]PayrollUnit, 0, len(rows))
	for _, row := range rows {
		code, _ := row.String("SDafdID")
		u := PayrollUnit{Code: strings.TrimSpace(code)}
		if losID, ok := row.Int("LOSID"); ok {
			u.LOSID = &losID
		}
		units = append(units, u)
	}
	return units, nil
}

// Mapping loads and unifies both directories. With categories, the payroll
// directory is filtered to the LOSIDs of the matching org units; without, both
// directories are read in full and in parallel.
func (r *Resolver) Mapping(ctx context.Context, categories ...int) (Mapping, error) {
	var (
		orgUnits     []OrgUnit
		payrollUnits []PayrollUnit
	)

	if len(categories) > 0 {
		var err error
		orgUnits, err = r.Organizational(ctx, categories...)
		if err != nil {
			return nil, err
		}
		ids := losIDsOf(orgUnits)
		if len(ids) == 0 {
			return Mapping{}, nil
		}
		payrollUnits, err = r.Payroll(ctx, ids...)
		if err != nil {
			return nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			orgUnits, err = r.Organizational(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			payrollUnits, err = r.Payroll(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	m := Unify(orgUnits, payrollUnits)
	r.logger.Debug("unified departments",
		"org_units", len(orgUnits),
		"payroll_units", len(payrollUnits),
		"departments", len(m),
	)
	return m, nil
}

// Contacts returns the active AF email address per LOSID. Rows without a
// LOSID or an address are skipped; the lowest address wins on duplicates.
func (r *Resolver) Contacts(ctx context.Context) (map[int]string, error) {
	rows, err := r.exec.Query(ctx, datasource.TargetMasterdata, contactQuery)
	if err != nil {
		return nil, err
	}

	out := make(map[int]string, len(rows))
	for _, row := range rows {
		losID, ok := row.Int("LOSID")
		if !ok {
			continue
		}
		email, ok := row.String("AF_email")
		email = strings.TrimSpace(email)
		if !ok || email == "" {
			continue
		}
		if cur, exists := out[losID]; !exists || email < cur {
			out[losID] = email
		}
	}
	return out, nil
}

// losIDsOf returns the distinct LOSIDs of units in ascending order.
func losIDsOf(units []OrgUnit) []int {
	set := make(map[int]struct{}, len(units))
	for _, u := range units {
		if u.LOSID != nil {
			set[*u.LOSID] = struct{}{}
		}
	}
	return datasource.SortedInts(set)
}

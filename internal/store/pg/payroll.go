package pg

import (
	"context"
	"database/sql"
	"errors"

	"paycore.org/internal/payroll"
)

var _ payroll.Store = (*Store)(nil)

const payRunColumns = `id, run_id, organization_id, pay_group_id, pay_group_master_id,
	run_date, period_start, period_end, status, category, sub_type, pay_frequency,
	payroll_type, exchange_rate, days_worked, total_gross_pay, total_deductions,
	total_net_pay, approved_by, approved_at, created_by, created_at, updated_at`

func (s *Store) CreatePayRun(ctx context.Context, run *payroll.PayRun) error {
	_, err := s.db.ExecContext(ctx, `
		insert into pay_runs(`+payRunColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`,
		run.ID, run.RunID, run.OrganizationID, nullable(run.PayGroupID), run.PayGroupMasterID,
		run.RunDate, run.PeriodStart, run.PeriodEnd, string(run.Status), nullable(run.Category),
		nullable(run.SubType), nullable(run.PayFrequency), nullable(run.PayrollType),
		run.ExchangeRate, run.DaysWorked, run.TotalGrossPay, run.TotalDeductions,
		run.TotalNetPay, nullable(run.ApprovedBy), run.ApprovedAt, nullable(run.CreatedBy),
		run.CreatedAt, run.UpdatedAt,
	)
	return err
}

func (s *Store) GetPayRun(ctx context.Context, id string) (*payroll.PayRun, error) {
	row := s.db.QueryRowContext(ctx, `select `+payRunColumns+` from pay_runs where id=$1`, id)
	return scanPayRun(row)
}

func (s *Store) UpdatePayRun(ctx context.Context, run *payroll.PayRun) error {
	res, err := s.db.ExecContext(ctx, `
		update pay_runs set
			run_date=$2, period_start=$3, period_end=$4, status=$5, sub_type=$6,
			pay_frequency=$7, payroll_type=$8, exchange_rate=$9, days_worked=$10,
			approved_by=$11, approved_at=$12, updated_at=$13
		where id=$1
	`,
		run.ID, run.RunDate, run.PeriodStart, run.PeriodEnd, string(run.Status),
		nullable(run.SubType), nullable(run.PayFrequency), nullable(run.PayrollType),
		run.ExchangeRate, run.DaysWorked, nullable(run.ApprovedBy), run.ApprovedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeletePayRun(ctx context.Context, id string) error {
	// pay_items has on delete cascade.
	res, err := s.db.ExecContext(ctx, `delete from pay_runs where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListPayRuns(ctx context.Context, organizationID string) ([]*payroll.PayRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+payRunColumns+` from pay_runs where organization_id=$1 order by created_at asc`,
		organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*payroll.PayRun
	for rows.Next() {
		run, err := scanPayRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

const payItemColumns = `id, pay_run_id, employee_id, hours_worked, pieces_completed,
	gross_pay, tax_deduction, benefit_deductions, employer_contributions,
	total_deductions, net_pay, status, notes, created_at, updated_at`

func (s *Store) CreatePayItem(ctx context.Context, item *payroll.PayItem) error {
	_, err := s.db.ExecContext(ctx, `
		insert into pay_items(`+payItemColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		item.ID, item.PayRunID, item.EmployeeID, item.HoursWorked, item.PiecesCompleted,
		item.GrossPay, item.TaxDeduction, item.BenefitDeductions, item.EmployerContributions,
		item.TotalDeductions, item.NetPay, string(item.Status), nullable(item.Notes),
		item.CreatedAt, item.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return payroll.ErrDuplicatePayItem
	}
	return err
}

func (s *Store) GetPayItem(ctx context.Context, id string) (*payroll.PayItem, error) {
	row := s.db.QueryRowContext(ctx, `select `+payItemColumns+` from pay_items where id=$1`, id)
	return scanPayItem(row)
}

func (s *Store) UpdatePayItem(ctx context.Context, item *payroll.PayItem) error {
	res, err := s.db.ExecContext(ctx, `
		update pay_items set
			hours_worked=$2, pieces_completed=$3, gross_pay=$4, tax_deduction=$5,
			benefit_deductions=$6, employer_contributions=$7, total_deductions=$8,
			net_pay=$9, status=$10, notes=$11, updated_at=$12
		where id=$1
	`,
		item.ID, item.HoursWorked, item.PiecesCompleted, item.GrossPay, item.TaxDeduction,
		item.BenefitDeductions, item.EmployerContributions, item.TotalDeductions,
		item.NetPay, string(item.Status), nullable(item.Notes), item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeletePayItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from pay_items where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListPayItems(ctx context.Context, payRunID string) ([]*payroll.PayItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+payItemColumns+` from pay_items where pay_run_id=$1 order by created_at asc`,
		payRunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*payroll.PayItem
	for rows.Next() {
		item, err := scanPayItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, rows.Err()
}

// UpdateTotals resummarizes in a single statement, so the aggregate
// write is atomic against the committed item set.
func (s *Store) UpdateTotals(ctx context.Context, payRunID string, _ payroll.Totals) error {
	res, err := s.db.ExecContext(ctx, `
		update pay_runs set
			total_gross_pay   = t.gross,
			total_deductions  = t.deductions,
			total_net_pay     = t.net,
			updated_at        = now()
		from (
			select coalesce(sum(gross_pay),0)       as gross,
			       coalesce(sum(total_deductions),0) as deductions,
			       coalesce(sum(net_pay),0)          as net
			from pay_items where pay_run_id=$1
		) t
		where id=$1
	`, payRunID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ResolvePayGroupMaster(ctx context.Context, organizationID, payGroupID string) (string, error) {
	var masterID string
	err := s.db.QueryRowContext(ctx,
		`select master_id from pay_groups where organization_id=$1 and group_id=$2`,
		organizationID, payGroupID).Scan(&masterID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", payroll.ErrMissingPayGroup
	}
	if err != nil {
		return "", err
	}
	return masterID, nil
}

// Members returns the primary pay-group membership source.
func (s *Store) Members() payroll.MemberSource {
	return &memberSource{db: s.db, name: "pay_group_members", table: "pay_group_members"}
}

// LegacyMembers returns the legacy membership fallback source.
func (s *Store) LegacyMembers() payroll.MemberSource {
	return &memberSource{db: s.db, name: "legacy_pay_group_members", table: "legacy_pay_group_members"}
}

type memberSource struct {
	db    *sql.DB
	name  string
	table string
}

func (m *memberSource) Name() string { return m.name }

func (m *memberSource) ActiveMembers(ctx context.Context, organizationID, payGroupMasterID string) ([]payroll.Member, error) {
	rows, err := m.db.QueryContext(ctx,
		`select employee_id from `+m.table+` where organization_id=$1 and master_id=$2 and active`,
		organizationID, payGroupMasterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []payroll.Member
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, payroll.Member{EmployeeID: id})
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayRun(row rowScanner) (*payroll.PayRun, error) {
	var (
		run        payroll.PayRun
		payGroupID sql.NullString
		category   sql.NullString
		subType    sql.NullString
		frequency  sql.NullString
		ptype      sql.NullString
		approvedBy sql.NullString
		createdBy  sql.NullString
		status     string
	)
	err := row.Scan(
		&run.ID, &run.RunID, &run.OrganizationID, &payGroupID, &run.PayGroupMasterID,
		&run.RunDate, &run.PeriodStart, &run.PeriodEnd, &status, &category, &subType,
		&frequency, &ptype, &run.ExchangeRate, &run.DaysWorked, &run.TotalGrossPay,
		&run.TotalDeductions, &run.TotalNetPay, &approvedBy, &run.ApprovedAt,
		&createdBy, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.Status = payroll.Status(status)
	run.PayGroupID = payGroupID.String
	run.Category = category.String
	run.SubType = subType.String
	run.PayFrequency = frequency.String
	run.PayrollType = ptype.String
	run.ApprovedBy = approvedBy.String
	run.CreatedBy = createdBy.String
	return &run, nil
}

func scanPayItem(row rowScanner) (*payroll.PayItem, error) {
	var (
		item   payroll.PayItem
		notes  sql.NullString
		status string
	)
	err := row.Scan(
		&item.ID, &item.PayRunID, &item.EmployeeID, &item.HoursWorked, &item.PiecesCompleted,
		&item.GrossPay, &item.TaxDeduction, &item.BenefitDeductions, &item.EmployerContributions,
		&item.TotalDeductions, &item.NetPay, &status, &notes, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.Status = payroll.ItemStatus(status)
	item.Notes = notes.String
	return &item, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return payroll.ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

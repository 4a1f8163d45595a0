package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ComplaintFilter captures search parameters.
type ComplaintFilter struct {
	StudentEmail    *string
	Category        *string
	AssignedStaffID *string
	Statuses        []domain.ComplaintStatus
	Priorities      []domain.ComplaintPriority
	MinLevel        *int
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	// ListOpen returns every complaint still counting against its due date.
	ListOpen(ctx context.Context) ([]domain.Complaint, error)
	// AssignToStaff persists the assignment fields and increments the new
	// owner's workload in one transaction.
	AssignToStaff(ctx context.Context, complaint *domain.Complaint) error
	// TransferToStaff moves ownership: decrements the previous owner's
	// workload (if any), increments the new owner's, updates the complaint.
	TransferToStaff(ctx context.Context, complaint *domain.Complaint, fromStaffID *string) error
	// CompleteAndRelease persists a terminal transition and releases the
	// owner's workload slot in one transaction.
	CompleteAndRelease(ctx context.Context, complaint *domain.Complaint) error
	// UpdateEscalation is a compare-and-set on (level, status). Returns false
	// without error when another sweep won the race.
	UpdateEscalation(ctx context.Context, id string, fromLevel int, fromStatus domain.ComplaintStatus, toLevel int, toStatus domain.ComplaintStatus) (bool, error)
	// SetRating writes the rating only if none exists and the complaint is
	// resolved or closed. Returns false when the gate rejected the write.
	SetRating(ctx context.Context, id string, rating domain.Rating) (bool, error)
	// AverageRatingForStaff returns the mean score and sample count across a
	// staff member's rated complaints.
	AverageRatingForStaff(ctx context.Context, staffID string) (float64, int, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, external_key, title, description, category, priority, status,
               student_name, student_email, student_college_id, student_phone,
               assigned_staff_id, assigned_staff_name, escalation_level, due_date,
               resolution, rating_score, rating_comment, rated_at,
               created_at, updated_at, resolved_at, closed_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (external_key, title, description, category, priority, status,
            student_name, student_email, student_college_id, student_phone, due_date, escalation_level)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		complaint.ExternalKey,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Priority,
		complaint.Status,
		complaint.StudentName,
		complaint.StudentEmail,
		complaint.StudentCollegeID,
		complaint.StudentPhone,
		complaint.DueDate,
		complaint.EscalationLevel,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	cmd, err := r.pool.Exec(ctx, updateComplaintSQL, updateComplaintArgs(complaint)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const updateComplaintSQL = `
        UPDATE complaints SET status=$1, assigned_staff_id=$2, assigned_staff_name=$3,
            escalation_level=$4, due_date=$5, resolution=$6, resolved_at=$7, closed_at=$8,
            updated_at=NOW()
        WHERE id=$9`

func updateComplaintArgs(complaint *domain.Complaint) []any {
	return []any{
		complaint.Status,
		complaint.AssignedStaffID,
		complaint.AssignedStaffName,
		complaint.EscalationLevel,
		complaint.DueDate,
		complaint.Resolution,
		complaint.ResolvedAt,
		complaint.ClosedAt,
		complaint.ID,
	}
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *complaintRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE external_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanComplaint(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*domain.Complaint, error) {
	var complaint domain.Complaint
	var ratingScore *int
	var ratingComment *string
	var ratedAt *time.Time
	if err := row.Scan(
		&complaint.ID,
		&complaint.ExternalKey,
		&complaint.Title,
		&complaint.Description,
		&complaint.Category,
		&complaint.Priority,
		&complaint.Status,
		&complaint.StudentName,
		&complaint.StudentEmail,
		&complaint.StudentCollegeID,
		&complaint.StudentPhone,
		&complaint.AssignedStaffID,
		&complaint.AssignedStaffName,
		&complaint.EscalationLevel,
		&complaint.DueDate,
		&complaint.Resolution,
		&ratingScore,
		&ratingComment,
		&ratedAt,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.ResolvedAt,
		&complaint.ClosedAt,
	); err != nil {
		return nil, err
	}
	if ratingScore != nil {
		rating := domain.Rating{Score: *ratingScore}
		if ratingComment != nil {
			rating.Comment = *ratingComment
		}
		if ratedAt != nil {
			rating.RatedAt = *ratedAt
		}
		complaint.Rating = &rating
	}
	return &complaint, nil
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	base := `SELECT ` + complaintColumns + ` FROM complaints`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudentEmail != nil {
		args = append(args, *filter.StudentEmail)
		clauses = append(clauses, fmt.Sprintf("student_email=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.AssignedStaffID != nil {
		args = append(args, *filter.AssignedStaffID)
		clauses = append(clauses, fmt.Sprintf("assigned_staff_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.MinLevel != nil {
		args = append(args, *filter.MinLevel)
		clauses = append(clauses, fmt.Sprintf("escalation_level >= $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComplaints(rows)
}

func (r *complaintRepository) ListOpen(ctx context.Context) ([]domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints
             WHERE status IN ('PENDING','ASSIGNED','IN_PROGRESS','ESCALATED')
             ORDER BY due_date ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectComplaints(rows)
}

func collectComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func (r *complaintRepository) AssignToStaff(ctx context.Context, complaint *domain.Complaint) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, updateComplaintSQL, updateComplaintArgs(complaint)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if complaint.AssignedStaffID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE staff_members SET current_workload=current_workload+1, updated_at=NOW() WHERE id=$1`,
			*complaint.AssignedStaffID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *complaintRepository) TransferToStaff(ctx context.Context, complaint *domain.Complaint, fromStaffID *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, updateComplaintSQL, updateComplaintArgs(complaint)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if fromStaffID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE staff_members SET current_workload=GREATEST(current_workload-1,0), updated_at=NOW() WHERE id=$1`,
			*fromStaffID); err != nil {
			return err
		}
	}
	if complaint.AssignedStaffID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE staff_members SET current_workload=current_workload+1, updated_at=NOW() WHERE id=$1`,
			*complaint.AssignedStaffID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *complaintRepository) CompleteAndRelease(ctx context.Context, complaint *domain.Complaint) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, updateComplaintSQL, updateComplaintArgs(complaint)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if complaint.AssignedStaffID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE staff_members SET current_workload=GREATEST(current_workload-1,0), updated_at=NOW() WHERE id=$1`,
			*complaint.AssignedStaffID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *complaintRepository) UpdateEscalation(ctx context.Context, id string, fromLevel int, fromStatus domain.ComplaintStatus, toLevel int, toStatus domain.ComplaintStatus) (bool, error) {
	const query = `
        UPDATE complaints SET escalation_level=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND escalation_level=$4 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, toLevel, toStatus, id, fromLevel, fromStatus)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *complaintRepository) SetRating(ctx context.Context, id string, rating domain.Rating) (bool, error) {
	const query = `
        UPDATE complaints SET rating_score=$1, rating_comment=$2, rated_at=$3, updated_at=NOW()
        WHERE id=$4 AND rating_score IS NULL AND status IN ('RESOLVED','CLOSED')`
	cmd, err := r.pool.Exec(ctx, query, rating.Score, rating.Comment, rating.RatedAt, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *complaintRepository) AverageRatingForStaff(ctx context.Context, staffID string) (float64, int, error) {
	const query = `
        SELECT COALESCE(AVG(rating_score),0), COUNT(rating_score)
        FROM complaints WHERE assigned_staff_id=$1 AND rating_score IS NOT NULL`
	var avg float64
	var count int
	if err := r.pool.QueryRow(ctx, query, staffID).Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}

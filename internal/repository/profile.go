package repository

import (
	"context"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// profileCols — порядок соответствует scanProfile.
const profileCols = `id, first_name, last_name, company_name, phone, address, city, state, zipcode, status, photo_base64, updated_at`

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func scanProfile(s interface{ Scan(dest ...any) error }, p *model.Profile) error {
	return s.Scan(&p.ID, &p.FirstName, &p.LastName, &p.CompanyName, &p.Phone, &p.Address, &p.City, &p.State, &p.Zipcode, &p.Status, &p.PhotoBase64, &p.UpdatedAt)
}

// CreateProfile — регистрация пользователя (вне основного потока: -dev сидинг, тесты).
func (r *ProfileRepository) CreateProfile(ctx context.Context, p *model.Profile) error {
	defer logger.DeferLogDuration("profile.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, first_name, last_name, company_name, phone, address, city, state, zipcode, status, photo_base64, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		 ON CONFLICT (id) DO NOTHING`,
		p.ID, p.FirstName, p.LastName, p.CompanyName, p.Phone, p.Address, p.City, p.State, p.Zipcode, p.Status, p.PhotoBase64,
	)
	return wrap("profileRepo.Create", err)
}

func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	defer logger.DeferLogDuration("profile.Get", time.Now())()
	p := &model.Profile{}
	row := r.pool.QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, id)
	if err := scanProfile(row, p); err != nil {
		return nil, wrap("profileRepo.Get", err)
	}
	return p, nil
}

// UpdateProfile — только поля формы; photo_base64 не входит в SET.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, id string, u model.ProfileUpdate) error {
	defer logger.DeferLogDuration("profile.Update", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET first_name = $2, last_name = $3, company_name = $4, phone = $5, address = $6,
		        city = $7, state = $8, zipcode = $9, status = $10, updated_at = now()
		 WHERE id = $1`,
		id, u.FirstName, u.LastName, u.CompanyName, u.Phone, u.Address, u.City, u.State, u.Zipcode, u.Status,
	)
	if err != nil {
		return wrap("profileRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) SetProfilePhoto(ctx context.Context, id, photoBase64 string) error {
	defer logger.DeferLogDuration("profile.SetPhoto", time.Now())()
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET photo_base64 = $2, updated_at = now() WHERE id = $1`, id, photoBase64)
	if err != nil {
		return wrap("profileRepo.SetPhoto", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

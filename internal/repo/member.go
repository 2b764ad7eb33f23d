package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/church_members/internal/models"
)

// SortColumns maps the accepted sort_by values to columns.
var SortColumns = map[string]string{
	"name":          "name",
	"register_date": "register_date",
	"birth_year":    "birth_year",
	"district":      "district",
	"position":      "position",
	"id":            "id",
}

type MemberFilter struct {
	Gender   string
	District string
	Position string
	SortBy   string
	Desc     bool
}

func (f MemberFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Gender != "" {
		q = q.Where("gender = ?", f.Gender)
	}
	if f.District != "" {
		q = q.Where("district = ?", f.District)
	}
	if f.Position != "" {
		q = q.Where("position = ?", f.Position)
	}
	return q
}

func (f MemberFilter) order() clause.OrderByColumn {
	col, ok := SortColumns[f.SortBy]
	if !ok {
		col = "name"
	}
	return clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.Desc}
}

func (r *GormRepo) ListMembers(ctx context.Context, f MemberFilter, offset, limit int) (int64, []models.Member, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Member{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Member, 0, limit)
	err := f.apply(r.DB.WithContext(ctx).Model(&models.Member{})).
		Order(f.order()).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetMember(ctx context.Context, id uint) (*models.Member, error) {
	var m models.Member
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *GormRepo) GetMembers(ctx context.Context, ids []uint) ([]models.Member, error) {
	items := make([]models.Member, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateMember(ctx context.Context, m *models.Member) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

// SaveMember writes every column of an already loaded member.
func (r *GormRepo) SaveMember(ctx context.Context, m *models.Member) error {
	return r.DB.WithContext(ctx).Save(m).Error
}

func (r *GormRepo) DeleteMember(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Member{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchMembersByName is a substring match on name, case-insensitive.
func (r *GormRepo) SearchMembersByName(ctx context.Context, name string, limit int) ([]models.Member, error) {
	pattern := "%" + escapeLike(strings.ToLower(name)) + "%"
	items := make([]models.Member, 0)
	err := r.DB.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type PublicMember struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	District string `json:"district"`
	Position string `json:"position"`
}

func (r *GormRepo) ListPublicMembers(ctx context.Context) ([]PublicMember, error) {
	items := make([]PublicMember, 0)
	err := r.DB.WithContext(ctx).
		Model(&models.Member{}).
		Select("id", "name", "district", "position").
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) AllMembers(ctx context.Context) ([]models.Member, error) {
	items := make([]models.Member, 0)
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

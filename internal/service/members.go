package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/models"
	"github.com/Skotchmaster/church_members/internal/repo"
	"github.com/Skotchmaster/church_members/internal/search"
	"github.com/Skotchmaster/church_members/internal/transport"
	"github.com/Skotchmaster/church_members/internal/util"
)

const searchLimit = 50

type MemberService struct {
	Repo   *repo.GormRepo
	Index  search.Index
	Events events.Publisher
	Topic  string
	Now    func() time.Time
}

func (s *MemberService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type MemberQuery struct {
	Gender    string
	District  string
	Position  string
	SortBy    string
	SortOrder string
	Page      util.Page
}

func (s *MemberService) List(ctx context.Context, q MemberQuery) (int64, []models.Member, error) {
	f := repo.MemberFilter{
		Gender:   strings.TrimSpace(q.Gender),
		District: strings.TrimSpace(q.District),
		Position: strings.TrimSpace(q.Position),
		SortBy:   strings.ToLower(strings.TrimSpace(q.SortBy)),
	}
	if f.SortBy == "" {
		f.SortBy = "name"
	}
	if _, ok := repo.SortColumns[f.SortBy]; !ok {
		return 0, nil, newErr(ErrValidation, "unsupported sort_by "+strconv.Quote(q.SortBy))
	}
	switch strings.ToLower(strings.TrimSpace(q.SortOrder)) {
	case "", "asc":
	case "desc":
		f.Desc = true
	default:
		return 0, nil, newErr(ErrValidation, "sort_order must be asc or desc")
	}

	total, items, err := s.Repo.ListMembers(ctx, f, q.Page.Offset(), q.Page.PerPage)
	if err != nil {
		return 0, nil, wrapErr(ErrUnavailable, "cannot list members", err)
	}
	return total, items, nil
}

func (s *MemberService) Get(ctx context.Context, id uint) (*models.Member, error) {
	m, err := s.Repo.GetMember(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newErr(ErrNotFound, "member not found")
		}
		return nil, wrapErr(ErrUnavailable, "cannot load member", err)
	}
	return m, nil
}

func validBirthDate(y, m, d int, today time.Time) bool {
	if y < 1850 || y > today.Year() {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

func (s *MemberService) Create(ctx context.Context, actorID uint, in transport.CreateMemberRequest) (*models.Member, error) {
	l := logging.FromContext(ctx).With("svc", "members.create")

	if err := validate.Struct(in); err != nil {
		return nil, wrapErr(ErrValidation, "invalid member", err)
	}
	now := s.now()
	if !validBirthDate(in.BirthYear, in.BirthMonth, in.BirthDay, now) {
		return nil, newErr(ErrValidation, "birth date is not a valid calendar date")
	}

	m := &models.Member{
		RegisterDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Name:         strings.TrimSpace(in.Name),
		BirthYear:    in.BirthYear,
		BirthMonth:   in.BirthMonth,
		BirthDay:     in.BirthDay,
		Phone:        strings.TrimSpace(in.Phone),
		Gender:       in.Gender,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		Zipcode:      in.Zipcode,
		District:     in.District,
		Spouse:       in.Spouse,
		Position:     in.Position,
	}
	if err := s.Repo.CreateMember(ctx, m); err != nil {
		return nil, wrapErr(ErrUnavailable, "cannot create member", err)
	}

	s.mirror(ctx, m)
	s.publish(ctx, events.New(events.MemberCreated, subject(m.ID), actorID, m))
	l.Info("member_created", "member_id", m.ID, "actor_id", actorID)
	return m, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (s *MemberService) Update(ctx context.Context, actorID, id uint, in transport.UpdateMemberRequest) (*models.Member, error) {
	l := logging.FromContext(ctx).With("svc", "members.update")

	if err := validate.Struct(in); err != nil {
		return nil, wrapErr(ErrValidation, "invalid member", err)
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	setIf(&m.Name, in.Name)
	setIf(&m.BirthYear, in.BirthYear)
	setIf(&m.BirthMonth, in.BirthMonth)
	setIf(&m.BirthDay, in.BirthDay)
	setIf(&m.Phone, in.Phone)
	setIf(&m.Gender, in.Gender)
	setIf(&m.Address, in.Address)
	setIf(&m.City, in.City)
	setIf(&m.State, in.State)
	setIf(&m.Zipcode, in.Zipcode)
	setIf(&m.District, in.District)
	setIf(&m.Spouse, in.Spouse)
	setIf(&m.Position, in.Position)

	if !validBirthDate(m.BirthYear, m.BirthMonth, m.BirthDay, s.now()) {
		return nil, newErr(ErrValidation, "birth date is not a valid calendar date")
	}
	if err := s.Repo.SaveMember(ctx, m); err != nil {
		return nil, wrapErr(ErrUnavailable, "cannot update member", err)
	}

	s.mirror(ctx, m)
	s.publish(ctx, events.New(events.MemberUpdated, subject(m.ID), actorID, m))
	l.Info("member_updated", "member_id", m.ID, "actor_id", actorID)
	return m, nil
}

func (s *MemberService) Delete(ctx context.Context, actorID, id uint) error {
	l := logging.FromContext(ctx).With("svc", "members.delete")

	if err := s.Repo.DeleteMember(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newErr(ErrNotFound, "member not found")
		}
		return wrapErr(ErrUnavailable, "cannot delete member", err)
	}

	if s.Index != nil {
		if err := s.Index.DeleteMember(ctx, id); err != nil {
			l.Warn("search_index_delete_failed", "member_id", id, "error", err)
		}
	}
	s.publish(ctx, events.New(events.MemberDeleted, subject(id), actorID, nil))
	l.Info("member_deleted", "member_id", id, "actor_id", actorID)
	return nil
}

// Search matches name as a substring. The search index is used when enabled; any index
// failure falls back to SQL.
func (s *MemberService) Search(ctx context.Context, name string) ([]transport.MemberSummary, error) {
	l := logging.FromContext(ctx).With("svc", "members.search")

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newErr(ErrValidation, "name query parameter is required")
	}

	var items []models.Member
	if s.Index != nil && s.Index.Enabled() {
		found, err := s.searchIndex(ctx, name)
		if err == nil {
			items = found
		} else {
			l.Warn("search_index_failed", "reason", "falling back to sql", "error", err)
		}
	}
	if items == nil {
		found, err := s.Repo.SearchMembersByName(ctx, name, searchLimit)
		if err != nil {
			return nil, wrapErr(ErrUnavailable, "cannot search members", err)
		}
		items = found
	}

	out := make([]transport.MemberSummary, 0, len(items))
	for _, m := range items {
		out = append(out, transport.NewMemberSummary(m))
	}
	return out, nil
}

func (s *MemberService) searchIndex(ctx context.Context, name string) ([]models.Member, error) {
	ids, err := s.Index.SearchByName(ctx, name, searchLimit)
	if err != nil {
		return nil, err
	}
	rows, err := s.Repo.GetMembers(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Member, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}
	ordered := make([]models.Member, 0, len(rows))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

func (s *MemberService) Public(ctx context.Context) ([]repo.PublicMember, error) {
	items, err := s.Repo.ListPublicMembers(ctx)
	if err != nil {
		return nil, wrapErr(ErrUnavailable, "cannot list members", err)
	}
	return items, nil
}

// Reindex pushes every member to the search index.
func (s *MemberService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil || !s.Index.Enabled() {
		return 0, search.ErrDisabled
	}
	items, err := s.Repo.AllMembers(ctx)
	if err != nil {
		return 0, err
	}
	for i := range items {
		if err := s.Index.IndexMember(ctx, &items[i]); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func (s *MemberService) mirror(ctx context.Context, m *models.Member) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexMember(ctx, m); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "member_id", m.ID, "error", err)
	}
}

func (s *MemberService) publish(ctx context.Context, ev events.Event) {
	publish(ctx, s.Events, s.Topic, ev)
}

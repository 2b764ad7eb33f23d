package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/church_members/internal/db/dbtest"
	"github.com/Skotchmaster/church_members/internal/events"
	"github.com/Skotchmaster/church_members/internal/models"
	"github.com/Skotchmaster/church_members/internal/repo"
	"github.com/Skotchmaster/church_members/internal/transport"
	"github.com/Skotchmaster/church_members/internal/util"
)

type fakeIndex struct {
	docs      map[uint]string
	searchIDs []uint
	searchErr error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[uint]string{}} }

func (f *fakeIndex) Enabled() bool { return true }

func (f *fakeIndex) IndexMember(_ context.Context, m *models.Member) error {
	f.docs[m.ID] = m.Name
	return nil
}

func (f *fakeIndex) DeleteMember(_ context.Context, id uint) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) SearchByName(context.Context, string, int) ([]uint, error) {
	return f.searchIDs, f.searchErr
}

func newMemberService(t *testing.T) (*MemberService, *fakeIndex, *recordingPublisher) {
	t.Helper()
	idx := newFakeIndex()
	pub := &recordingPublisher{}
	return &MemberService{
		Repo:   repo.New(dbtest.New(t)),
		Index:  idx,
		Events: pub,
		Topic:  "members",
		Now:    func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) },
	}, idx, pub
}

func createReq(name string) transport.CreateMemberRequest {
	return transport.CreateMemberRequest{
		Name: name, BirthYear: 1985, BirthMonth: 2, BirthDay: 28, Phone: "010-1234-5678",
		Gender: "F", District: "North", Position: "Deacon",
	}
}

func TestMemberService_CreateUpdateDelete(t *testing.T) {
	s, idx, pub := newMemberService(t)
	ctx := context.Background()

	m, err := s.Create(ctx, 1, createReq("Kim Minji"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), m.RegisterDate.UTC())
	assert.Equal(t, "Kim Minji", idx.docs[m.ID])

	phone := "010-9999-0000"
	district := "South"
	updated, err := s.Update(ctx, 1, m.ID, transport.UpdateMemberRequest{Phone: &phone, District: &district})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "South", updated.District)
	assert.Equal(t, "Kim Minji", updated.Name)

	require.NoError(t, s.Delete(ctx, 1, m.ID))
	assert.Empty(t, idx.docs)
	require.ErrorIs(t, s.Delete(ctx, 1, m.ID), ErrNotFound)

	assert.Equal(t, []string{events.MemberCreated, events.MemberUpdated, events.MemberDeleted}, pub.types())
}

func TestMemberService_CreateValidation(t *testing.T) {
	s, _, _ := newMemberService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		mut  func(r *transport.CreateMemberRequest)
	}{
		{"missing name", func(r *transport.CreateMemberRequest) { r.Name = "" }},
		{"missing phone", func(r *transport.CreateMemberRequest) { r.Phone = "" }},
		{"bad month", func(r *transport.CreateMemberRequest) { r.BirthMonth = 13 }},
		{"impossible day", func(r *transport.CreateMemberRequest) { r.BirthMonth, r.BirthDay = 2, 30 }},
		{"future year", func(r *transport.CreateMemberRequest) { r.BirthYear = 2030 }},
		{"long state", func(r *transport.CreateMemberRequest) { r.State = "CAL" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createReq("Someone")
			tt.mut(&req)
			_, err := s.Create(ctx, 1, req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestMemberService_UpdateRejectsInvalidDate(t *testing.T) {
	s, _, _ := newMemberService(t)
	ctx := context.Background()

	m, err := s.Create(ctx, 1, createReq("Lee"))
	require.NoError(t, err)

	day := 31
	month := 4
	_, err = s.Update(ctx, 1, m.ID, transport.UpdateMemberRequest{BirthMonth: &month, BirthDay: &day})
	require.ErrorIs(t, err, ErrValidation)

	empty := ""
	_, err = s.Update(ctx, 1, m.ID, transport.UpdateMemberRequest{Name: &empty})
	require.ErrorIs(t, err, ErrValidation)

	_, err = s.Update(ctx, 1, 404, transport.UpdateMemberRequest{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemberService_List(t *testing.T) {
	s, _, _ := newMemberService(t)
	ctx := context.Background()
	for _, n := range []string{"Choi", "Ahn", "Baek"} {
		_, err := s.Create(ctx, 1, createReq(n))
		require.NoError(t, err)
	}

	total, items, err := s.List(ctx, MemberQuery{Page: util.NewPage(1, 2)})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Ahn", items[0].Name)

	_, items, err = s.List(ctx, MemberQuery{SortBy: "name", SortOrder: "DESC", Page: util.NewPage(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, "Choi", items[0].Name)

	_, _, err = s.List(ctx, MemberQuery{SortBy: "password_hash", Page: util.NewPage(1, 10)})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = s.List(ctx, MemberQuery{SortOrder: "sideways", Page: util.NewPage(1, 10)})
	require.ErrorIs(t, err, ErrValidation)
}

func TestMemberService_Search(t *testing.T) {
	s, idx, _ := newMemberService(t)
	ctx := context.Background()
	a, err := s.Create(ctx, 1, createReq("Kim Minji"))
	require.NoError(t, err)
	b, err := s.Create(ctx, 1, createReq("Kim Dohyun"))
	require.NoError(t, err)

	idx.searchIDs = []uint{b.ID, a.ID}
	got, err := s.Search(ctx, "kim")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, "010-1234-5678", got[0].Phone)

	idx.searchErr = errors.New("cluster red")
	got, err = s.Search(ctx, "Minji")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	_, err = s.Search(ctx, "   ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestMemberService_PublicAndReindex(t *testing.T) {
	s, idx, _ := newMemberService(t)
	ctx := context.Background()
	_, err := s.Create(ctx, 1, createReq("Kim Minji"))
	require.NoError(t, err)

	pub, err := s.Public(ctx)
	require.NoError(t, err)
	require.Len(t, pub, 1)
	assert.Equal(t, "North", pub[0].District)

	idx.docs = map[uint]string{}
	n, err := s.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, idx.docs, 1)
}

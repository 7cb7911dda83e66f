package records_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/records"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newService(t *testing.T) (*records.Service, *docstore.Live) {
	t.Helper()
	broker := feed.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	live := docstore.NewLive(docstore.NewMemoryStore(), broker)
	return records.NewService(records.CitizensCollection, live), live
}

func citizen(name string, sectors ...string) records.Profile {
	return records.Profile{
		Name:    name,
		Surname: "Silva",
		TaxID:   "123.456.789-00",
		Phone:   "+55 11 99999-0000",
		Sector:  sectors,
	}
}

func income(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSave_CreatesThenUpdates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p := citizen("Ana", "legal")
	p.MonthlyIncome = income("1234.50")
	saved, err := svc.Save(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, []string{"legal"}, got.Sector)
	require.NotNil(t, got.MonthlyIncome)
	assert.True(t, got.MonthlyIncome.Equal(decimal.RequireFromString("1234.5")))

	got.Profession = "Nurse"
	got.MonthlyIncome = nil
	_, err = svc.Save(ctx, *got)
	require.NoError(t, err)

	again, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nurse", again.Profession)
	assert.Nil(t, again.MonthlyIncome)
}

func TestSave_UnknownIDIsNotFound(t *testing.T) {
	svc, _ := newService(t)
	p := citizen("Ana", "legal")
	p.ID = "missing"

	_, err := svc.Save(context.Background(), p)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSave_Validation(t *testing.T) {
	svc, live := newService(t)
	ctx := context.Background()

	cases := map[string]struct {
		mutate func(*records.Profile)
		field  string
	}{
		"name":           {func(p *records.Profile) { p.Name = "" }, "name"},
		"surname":        {func(p *records.Profile) { p.Surname = "" }, "surname"},
		"tax id":         {func(p *records.Profile) { p.TaxID = "" }, "cpf"},
		"phone":          {func(p *records.Profile) { p.Phone = "" }, "phone"},
		"no sector":      {func(p *records.Profile) { p.Sector = nil }, "sector"},
		"unknown sector": {func(p *records.Profile) { p.Sector = []string{"finance"} }, "sector[0]"},
		"negative":       {func(p *records.Profile) { p.MonthlyIncome = income("-1") }, "monthly_income"},
		"three decimals": {func(p *records.Profile) { p.MonthlyIncome = income("10.125") }, "monthly_income"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := citizen("Ana", "legal")
			tc.mutate(&p)
			_, err := svc.Save(ctx, p)
			require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
			assert.Contains(t, apperr.DetailsOf(err), tc.field)
		})
	}

	docs, err := live.Query(ctx, records.CitizensCollection, docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, citizen("Ana", "legal"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, saved.ID))

	_, err = svc.Get(ctx, saved.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestList_FiltersBySectorAndSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, p := range []records.Profile{
		citizen("Carla", "legal"),
		citizen("Ana", "psychology", "legal"),
		citizen("Bruno", "administrative"),
	} {
		_, err := svc.Save(ctx, p)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Bruno", "Carla"}, names(all))

	legal, err := svc.List(ctx, []string{"legal", "social-assistance"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Carla"}, names(legal))

	found, err := svc.List(ctx, nil, "  BRU ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bruno"}, names(found))
}

func TestWatch_ReemitsAfterSave(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sub, err := svc.Watch(ctx, []string{"legal"})
	require.NoError(t, err)
	defer sub.Close()

	first := receive(t, sub.C)
	assert.Empty(t, first)

	_, err = svc.Save(ctx, citizen("Ana", "legal"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, names(receive(t, sub.C)))

	_, err = svc.Save(ctx, citizen("Bruno", "administrative"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, names(receive(t, sub.C)))
}

func TestExport_WritesWorkbook(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p := citizen("Ana", "legal", "psychology")
	p.MonthlyIncome = income("99.90")
	_, err := svc.Save(ctx, p)
	require.NoError(t, err)

	b, err := svc.Export(ctx, nil, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{records.CitizensCollection}, f.GetSheetList())
	rows, err := f.GetRows(records.CitizensCollection)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Nome", rows[0][0])
	assert.Equal(t, "Ana", rows[1][0])
	assert.Equal(t, "legal, psychology", rows[1][13])
}

func names(profiles []records.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Name)
	}
	return out
}

func receive[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-c:
		require.True(t, ok, "subscription completed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

func TestSave_AcceptsTrailingZeroIncome(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, v := range []string{"10.500", "1.100", "2500"} {
		p := citizen("Ana", "legal")
		p.MonthlyIncome = income(v)
		saved, err := svc.Save(ctx, p)
		require.NoError(t, err, "income %s", v)

		got, err := svc.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, got.MonthlyIncome.Equal(decimal.RequireFromString(v)), "income %s", v)
	}
}

func TestWatch_EndsOnUndecodableDocument(t *testing.T) {
	svc, live := newService(t)
	ctx := context.Background()

	_, err := live.Add(ctx, records.CitizensCollection, map[string]any{
		"name":   42,
		"sector": []any{"legal"},
	})
	require.NoError(t, err)

	sub, err := svc.Watch(ctx, nil)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case v, ok := <-sub.C:
		assert.False(t, ok, "unexpected profiles: %+v", v)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not end")
	}
}

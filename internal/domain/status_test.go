package domain_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"hotelops/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.Status
		ok       bool
	}{
		{domain.StatusOpen, domain.StatusAssigned, true},
		{domain.StatusOpen, domain.StatusResolved, true},
		{domain.StatusOpen, domain.StatusDismissed, true},
		{domain.StatusOpen, domain.StatusInProgress, false},
		{domain.StatusAssigned, domain.StatusInProgress, true},
		{domain.StatusAssigned, domain.StatusOpen, false},
		{domain.StatusInProgress, domain.StatusAssigned, true},
		{domain.StatusInProgress, domain.StatusResolved, true},
		{domain.StatusResolved, domain.StatusOpen, false},
		{domain.StatusResolved, domain.StatusInProgress, false},
		{domain.StatusDismissed, domain.StatusResolved, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			gt.Value(t, domain.CanTransition(tc.from, tc.to)).Equal(tc.ok)
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range []domain.Status{domain.StatusResolved, domain.StatusDismissed} {
		gt.Bool(t, from.IsTerminal()).True()
		for _, to := range domain.AllStatuses() {
			gt.Bool(t, domain.CanTransition(from, to)).False()
		}
	}
}

func TestParseDefaults(t *testing.T) {
	sev, err := domain.ParseSeverity("")
	gt.NoError(t, err).Required()
	gt.Value(t, sev).Equal(domain.SeverityMedium)

	sev, err = domain.ParseSeverity("high")
	gt.NoError(t, err).Required()
	gt.Value(t, sev).Equal(domain.SeverityHigh)

	_, err = domain.ParseSeverity("urgent")
	gt.Error(t, err)

	src, err := domain.ParseSource("")
	gt.NoError(t, err).Required()
	gt.Value(t, src).Equal(domain.SourceManual)

	_, err = domain.ParseSource("email")
	gt.Error(t, err)

	_, err = domain.ParseStatus("REOPENED")
	gt.Error(t, err)
}

func TestSyncTarget(t *testing.T) {
	st, ok := domain.SyncTarget(domain.EstadoPending)
	gt.Bool(t, ok).True()
	gt.Value(t, st).Equal(domain.StatusAssigned)

	st, ok = domain.SyncTarget(domain.EstadoInProgress)
	gt.Bool(t, ok).True()
	gt.Value(t, st).Equal(domain.StatusInProgress)

	st, ok = domain.SyncTarget(domain.EstadoCompleted)
	gt.Bool(t, ok).True()
	gt.Value(t, st).Equal(domain.StatusResolved)

	_, ok = domain.SyncTarget(domain.Estado(7))
	gt.Bool(t, ok).False()

	_, err := domain.ParseEstado(3)
	gt.Error(t, err)
}

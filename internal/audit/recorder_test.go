package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"entitylog/internal/entity"
	"entitylog/internal/platform/metrics"
)

type trackedAccount struct {
	id   int64
	name string
}

func (a *trackedAccount) EntityID() int64    { return a.id }
func (a *trackedAccount) EntityType() string { return "Account" }
func (a *trackedAccount) DisplayName() (string, bool) {
	if a.name == "" {
		return "", false
	}
	return a.name, true
}

type RecorderSuite struct {
	suite.Suite
	registry *entity.Registry
	recorder *Recorder
	account  *trackedAccount
	ctx      context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.registry = entity.NewRegistry()
	s.registry.Register("Account", []entity.AttrSpec{
		{Name: "name", DisplayName: true},
		{Name: "website"},
		{Name: "birthday"},
		{Name: "password", HideContent: true},
		{Name: "updated_at", NonAuditable: true},
	})
	s.recorder = NewRecorder(s.registry, metrics.NewWith(prometheus.NewRegistry()))
	s.account = &trackedAccount{id: 1, name: "John SARL"}
	s.ctx = context.Background()
}

func (s *RecorderSuite) TestRecordsSimpleChange() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", "", "http://www.john.com/")

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: "", New: "http://www.john.com/"}, changes["website"])
}

func (s *RecorderSuite) TestSkipsNoOpChange() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", "same", "same")

	_, ok := s.recorder.Pending(s.account)
	s.False(ok)
}

func (s *RecorderSuite) TestSkipsEmptyToEmpty() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", nil, "")
	s.recorder.AttributeSet(s.ctx, s.account, "website", "", nil)

	_, ok := s.recorder.Pending(s.account)
	s.False(ok)
}

func (s *RecorderSuite) TestNormalizesNeverLoadedSentinel() {
	birthday := time.Date(2012, 12, 25, 0, 0, 0, 0, time.UTC)
	s.recorder.AttributeSet(s.ctx, s.account, "birthday", NoValue, birthday)

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: nil, New: birthday}, changes["birthday"])
}

func (s *RecorderSuite) TestSkipsNonAuditableAttribute() {
	s.recorder.AttributeSet(s.ctx, s.account, "updated_at", "a", "b")

	_, ok := s.recorder.Pending(s.account)
	s.False(ok)
}

func (s *RecorderSuite) TestSkipsUnregisteredType() {
	ghost := &unregisteredEntity{}
	s.recorder.AttributeSet(s.ctx, ghost, "anything", "a", "b")

	_, ok := s.recorder.Pending(ghost)
	s.False(ok)
}

func (s *RecorderSuite) TestRedactsHiddenAttribute() {
	s.recorder.AttributeSet(s.ctx, s.account, "password", "*", "new super secret password")

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: Redacted, New: Redacted}, changes["password"])
}

func (s *RecorderSuite) TestHiddenAttributeRecordedEvenWhenUnchanged() {
	// The log must show that a hidden field was touched, content aside, even
	// for a set that restores the original value.
	s.recorder.AttributeSet(s.ctx, s.account, "password", "secret", "secret")

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: Redacted, New: Redacted}, changes["password"])
}

func (s *RecorderSuite) TestCoalescesSequentialEdits() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", "a.example", "b.example")
	s.recorder.AttributeSet(s.ctx, s.account, "website", "b.example", "c.example")
	s.recorder.AttributeSet(s.ctx, s.account, "website", "c.example", "d.example")

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: "a.example", New: "d.example"}, changes["website"])
}

func (s *RecorderSuite) TestTruncatesOversizeValues() {
	big := strings.Repeat("x", MaxValueLen+1)
	s.recorder.AttributeSet(s.ctx, s.account, "website", "small", big)

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: "small", New: LargeValueMarker}, changes["website"])
}

func (s *RecorderSuite) TestNonComparableValuesDoNotPanic() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", []string{"a"}, []string{"a", "b"})

	changes, ok := s.recorder.Pending(s.account)
	s.Require().True(ok)
	s.Equal(Change{Old: []string{"a"}, New: []string{"a", "b"}}, changes["website"])
}

func (s *RecorderSuite) TestDrainClearsPendingState() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", "", "x.example")

	changes := s.recorder.Drain(s.account)
	s.Len(changes, 1)

	_, ok := s.recorder.Pending(s.account)
	s.False(ok)
	s.Empty(s.recorder.Drain(s.account))
}

func (s *RecorderSuite) TestDiscardDropsPendingState() {
	s.recorder.AttributeSet(s.ctx, s.account, "website", "", "x.example")
	s.recorder.Discard(s.account)

	_, ok := s.recorder.Pending(s.account)
	s.False(ok)
}

type unregisteredEntity struct{}

func (e *unregisteredEntity) EntityID() int64    { return 99 }
func (e *unregisteredEntity) EntityType() string { return "Ghost" }

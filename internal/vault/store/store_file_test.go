package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"safesupport/internal/vault"
	"safesupport/pkg/platform/sentinel"
)

type FileStoreSuite struct {
	suite.Suite
	dir   string
	store *FileStore
	ctx   context.Context
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "reports_vault")
	s.store = NewFileStore(s.dir)
	s.ctx = context.Background()
}

func (s *FileStoreSuite) record(id string) vault.Record {
	return vault.Record{
		ID:        id,
		UserID:    vault.AnonymousUserID,
		CreatedAt: "2026-01-02T03:04:05.000Z",
		Category:  "harassment",
		Encrypted: vault.Envelope{Alg: vault.AlgAESGCM, IV: "00", EncryptedData: "ff"},
	}
}

func (s *FileStoreSuite) collect(prefix string) ([]vault.Record, []error) {
	var recs []vault.Record
	var errs []error
	for rec, err := range s.store.Candidates(s.ctx, prefix) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, errs
}

func (s *FileStoreSuite) TestMissingDirectoryYieldsNothing() {
	recs, errs := s.collect("")
	s.Empty(recs)
	s.Empty(errs)
}

func (s *FileStoreSuite) TestPutThenCandidates() {
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_2_bb")))
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_1_aa")))

	recs, errs := s.collect("")
	s.Empty(errs)
	s.Require().Len(recs, 2)
	s.Equal("report_1_aa", recs[0].ID)
	s.Equal("report_2_bb", recs[1].ID)
	s.Equal("harassment", recs[0].Category)
}

func (s *FileStoreSuite) TestPrefixFilter() {
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_1_aa")))
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_12_bb")))
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_2_cc")))

	recs, _ := s.collect("report_1")
	s.Len(recs, 2)

	recs, _ = s.collect("report_2_cc")
	s.Require().Len(recs, 1)
	s.Equal("report_2_cc", recs[0].ID)
}

func (s *FileStoreSuite) TestPutNeverOverwrites() {
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_1_aa")))
	before, err := os.ReadFile(filepath.Join(s.dir, "report_1_aa.json"))
	s.Require().NoError(err)

	changed := s.record("report_1_aa")
	changed.Category = "other"
	s.ErrorIs(s.store.Put(s.ctx, changed), sentinel.ErrConflict)

	after, err := os.ReadFile(filepath.Join(s.dir, "report_1_aa.json"))
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *FileStoreSuite) TestRejectsPathLikeIDs() {
	s.Error(s.store.Put(s.ctx, s.record("../escape")))
	s.Error(s.store.Put(s.ctx, s.record("")))
}

func (s *FileStoreSuite) TestCorruptFileYieldsErrorAndSweepContinues() {
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_1_aa")))
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "report_0_zz.json"), []byte("{not json"), 0o600))
	s.Require().NoError(s.store.Put(s.ctx, s.record("report_2_bb")))

	recs, errs := s.collect("")
	s.Len(recs, 2)
	s.Len(errs, 1)
}

func (s *FileStoreSuite) TestStopsWhenConsumerBreaks() {
	for _, id := range []string{"report_1", "report_2", "report_3"} {
		s.Require().NoError(s.store.Put(s.ctx, s.record(id)))
	}
	seen := 0
	for range s.store.Candidates(s.ctx, "") {
		seen++
		break
	}
	s.Equal(1, seen)
}

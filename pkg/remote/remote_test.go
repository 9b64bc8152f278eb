package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/ncbi"
	"github.com/DrBoothTJ/cblaster/pkg/query"
)

var resultRows = []string{
	"QBE85648.1\tHIT1\t100.000\t179\t0\t0\t1\t179\t1\t179\t1.38e-127\t365\t100.00",
	"QBE85648.1\tHIT2\t20.000\t179\t0\t0\t1\t179\t1\t179\t1.38e-127\t365\t100.00",
	"QBE85648.1\tHIT3\t100.000\t179\t0\t0\t150\t179\t1\t179\t1.38e-127\t365\t100.00",
}

func querySeqs() map[string]string {
	return map[string]string{"QBE85648.1": strings.Repeat("M", 179)}
}

// fakeClient scripts the NCBI responses of a search.
type fakeClient struct {
	rid      string
	rtoe     time.Duration
	statuses []bool
	checkErr error
	rows     []string

	params    ncbi.SearchParams
	starts    int
	checks    int
	retrieved []string
}

func (f *fakeClient) StartSearch(_ context.Context, p ncbi.SearchParams) (string, time.Duration, error) {
	f.starts++
	f.params = p
	return f.rid, f.rtoe, nil
}

func (f *fakeClient) CheckSearch(_ context.Context, _ string) (bool, error) {
	f.checks++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.checks > len(f.statuses) {
		return false, nil
	}
	return f.statuses[f.checks-1], nil
}

func (f *fakeClient) RetrieveResults(_ context.Context, rid string) ([]string, error) {
	f.retrieved = append(f.retrieved, rid)
	return f.rows, nil
}

type fakeFetcher struct {
	seqs map[string]string
	ids  []string
}

func (f *fakeFetcher) FetchSequences(_ context.Context, ids []string) (map[string]string, error) {
	f.ids = ids
	return f.seqs, nil
}

func newTestSearcher(client *fakeClient, fetcher query.SequenceFetcher) (*Searcher, *[]time.Duration) {
	s := NewSearcher(client, fetcher, nil)
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return s, &slept
}

func TestParse(t *testing.T) {
	hits, err := Parse(resultRows, querySeqs(), cluster.DefaultThresholds())
	require.NoError(t, err)

	require.Len(t, hits, 1)
	hit := hits[0]
	assert.Equal(t, "QBE85648.1", hit.Query)
	assert.Equal(t, "HIT1", hit.Subject)
	assert.Equal(t, 100.0, hit.Identity)
	assert.Equal(t, 100.0, hit.Coverage)
	assert.Equal(t, 1.38e-127, hit.Evalue)
	assert.Equal(t, 365.0, hit.Bitscore)
}

func TestParse_Coverage(t *testing.T) {
	th := cluster.Thresholds{MinIdentity: 0, MinCoverage: 0, MaxEvalue: 1}
	hits, err := Parse(resultRows[2:], querySeqs(), th)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.InDelta(t, 30.0/179.0*100, hits[0].Coverage, 1e-9)
}

func TestParse_VersionlessQuery(t *testing.T) {
	seqs := map[string]string{"QBE85648": strings.Repeat("M", 179)}
	hits, err := Parse(resultRows, seqs, cluster.DefaultThresholds())
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestParse_NoResults(t *testing.T) {
	_, err := Parse(resultRows[1:], querySeqs(), cluster.DefaultThresholds())
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = Parse(nil, querySeqs(), cluster.DefaultThresholds())
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]string{"a\tb\tc"}, querySeqs(), cluster.DefaultThresholds())
	assert.Error(t, err)

	_, err = Parse(resultRows, map[string]string{}, cluster.DefaultThresholds())
	assert.ErrorContains(t, err, "no sequence for query")
}

func TestSearch_NewSearch(t *testing.T) {
	client := &fakeClient{rid: "RID1", rtoe: 18 * time.Second, statuses: []bool{false, false, true}, rows: resultRows}
	fetcher := &fakeFetcher{seqs: querySeqs()}
	s, slept := newTestSearcher(client, fetcher)

	var polls []int
	s.OnPoll = func(rid string, attempt int) {
		assert.Equal(t, "RID1", rid)
		polls = append(polls, attempt)
	}

	rid, hits, err := s.Search(context.Background(), Request{
		Database:    "refseq_protein",
		EntrezQuery: "Aspergillus[ORGN]",
		Query:       query.Query{IDs: []string{"QBE85648.1"}},
		Thresholds:  cluster.DefaultThresholds(),
	})
	require.NoError(t, err)

	assert.Equal(t, "RID1", rid)
	assert.Len(t, hits, 1)
	assert.Equal(t, 1, client.starts)
	assert.Equal(t, 3, client.checks)
	assert.Equal(t, []string{"RID1"}, client.retrieved)
	assert.Equal(t, []int{1, 2, 3}, polls)

	// RTOE first, then one interval between each later check.
	assert.Equal(t, []time.Duration{18 * time.Second, DefaultPollInterval, DefaultPollInterval}, *slept)

	assert.Equal(t, "QBE85648.1", client.params.Query)
	assert.Equal(t, "refseq_protein", client.params.Database)
	assert.Equal(t, "Aspergillus[ORGN]", client.params.EntrezQuery)
	assert.Equal(t, 0.01, client.params.Evalue)
	assert.Equal(t, []string{"QBE85648.1"}, fetcher.ids)
}

func TestSearch_QueryFile(t *testing.T) {
	fasta := ">QBE85648.1 test\n" + strings.Repeat("M", 179) + "\n"
	path := filepath.Join(t.TempDir(), "query.fasta")
	require.NoError(t, os.WriteFile(path, []byte(fasta), 0o600))

	client := &fakeClient{rid: "RID1", statuses: []bool{true}, rows: resultRows}
	s, _ := newTestSearcher(client, nil)

	_, hits, err := s.Search(context.Background(), Request{
		Query:      query.Query{File: path},
		Thresholds: cluster.DefaultThresholds(),
	})
	require.NoError(t, err)

	assert.Len(t, hits, 1)
	assert.Equal(t, fasta, client.params.Query)
	assert.Equal(t, "nr", client.params.Database)
}

func TestSearch_ExistingRID(t *testing.T) {
	client := &fakeClient{rows: resultRows}
	s, slept := newTestSearcher(client, &fakeFetcher{seqs: querySeqs()})

	rid, hits, err := s.Search(context.Background(), Request{
		RID:        "OLDRID",
		Query:      query.Query{IDs: []string{"QBE85648.1"}},
		Thresholds: cluster.DefaultThresholds(),
	})
	require.NoError(t, err)

	assert.Equal(t, "OLDRID", rid)
	assert.Len(t, hits, 1)
	assert.Zero(t, client.starts)
	assert.Zero(t, client.checks)
	assert.Empty(t, *slept)
	assert.Equal(t, []string{"OLDRID"}, client.retrieved)
}

func TestSearch_InvalidDatabase(t *testing.T) {
	client := &fakeClient{}
	s, _ := newTestSearcher(client, &fakeFetcher{})

	_, _, err := s.Search(context.Background(), Request{
		Database: "genbank",
		Query:    query.Query{IDs: []string{"x"}},
	})
	assert.Error(t, err)
	assert.Zero(t, client.starts)
}

func TestPoll_RetryLimit(t *testing.T) {
	client := &fakeClient{}
	s, slept := newTestSearcher(client, nil)
	s.MaxPolls = 4

	err := s.Poll(context.Background(), "RID")
	assert.ErrorIs(t, err, ErrRetryLimit)
	assert.Equal(t, 4, client.checks)
	assert.Len(t, *slept, 3)
}

func TestPoll_CheckError(t *testing.T) {
	client := &fakeClient{checkErr: ncbi.ErrSearchFailed}
	s, _ := newTestSearcher(client, nil)

	err := s.Poll(context.Background(), "RID")
	assert.ErrorIs(t, err, ncbi.ErrSearchFailed)
	assert.Equal(t, 1, client.checks)
}

func TestPoll_Cancelled(t *testing.T) {
	client := &fakeClient{}
	s := NewSearcher(client, nil, nil)
	s.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Poll(ctx, "RID")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, client.checks)
}

func TestValidDatabase(t *testing.T) {
	for _, db := range []string{"nr", "refseq_protein", "swissprot", "pdbaa"} {
		assert.True(t, ValidDatabase(db), db)
	}
	assert.False(t, ValidDatabase("NR"))
	assert.False(t, ValidDatabase(""))
}

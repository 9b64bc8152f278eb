package genomic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
)

const ipgTable = "Id\tSource\tNucleotide Accession\tStart\tStop\tStrand\tProtein\tProtein Name\tOrganism\tStrain\tAssembly\n" +
	"1\tINSDC\tSCAF1\t100\t1000\t+\ts1\tprotein one\tAspergillus nidulans FGSC A4\tFGSC A4\tGCA_000011425.1\n" +
	"1\tRefSeq\tSCAF1X\t100\t1000\t+\ts1x\tprotein one\tAspergillus nidulans FGSC A4\tFGSC A4\tGCF_000011425.1\n" +
	"2\tINSDC\tSCAF1\t2000\t3000\t-\ts2\tprotein two\tAspergillus nidulans FGSC A4\tFGSC A4\tGCA_000011425.1\n" +
	"\n" +
	"3\tINSDC\tSCAF2\t5000\t6000\t+\ts3\tprotein three\tAspergillus nidulans FGSC A4\tFGSC A4\tGCA_000011425.1\n" +
	"4\tINSDC\t\t1\t2\t+\ts4\tvector protein\tSynthetic construct\t\tGCA_1\n" +
	"5\tINSDC\tSCAF3\t1\t2\t+\ts5\tsingle gene\tOrganism B\t\t\n" +
	"6\tINSDC\tSCAF9\t10\t20\t+\ts6\tprotein six\tPenicillium rubens\tWisconsin 54-1255\tGCA_000226395.1\n"

func testHits() []*cluster.Hit {
	return []*cluster.Hit{
		{Query: "q1", Subject: "s1"},
		{Query: "q2", Subject: "s2"},
		{Query: "q3", Subject: "s2"},
		{Query: "q3", Subject: "s3"},
		{Query: "q1", Subject: "s6"},
		{Query: "q4", Subject: "s99"},
	}
}

func TestParseIPG(t *testing.T) {
	hits := testHits()
	organisms, err := ParseIPG(strings.NewReader(ipgTable), hits)
	require.NoError(t, err)

	require.Len(t, organisms, 2)

	an := organisms[0]
	assert.Equal(t, "Aspergillus nidulans", an.Name)
	assert.Equal(t, "FGSC A4", an.Strain)
	assert.Equal(t, "Aspergillus nidulans FGSC A4", an.FullName())
	require.Len(t, an.Scaffolds, 2)
	assert.Equal(t, "SCAF1", an.Scaffolds[0].Accession)
	assert.Equal(t, "SCAF2", an.Scaffolds[1].Accession)
	assert.Equal(t, []*cluster.Hit{hits[0], hits[1], hits[2]}, an.Scaffolds[0].Hits)
	assert.Equal(t, []*cluster.Hit{hits[3]}, an.Scaffolds[1].Hits)

	pr := organisms[1]
	assert.Equal(t, "Penicillium rubens", pr.Name)
	assert.Equal(t, "Wisconsin 54-1255", pr.Strain)
	require.Len(t, pr.Scaffolds, 1)
	assert.Equal(t, "SCAF9", pr.Scaffolds[0].Accession)

	assert.Equal(t, 100, hits[0].Start)
	assert.Equal(t, 1000, hits[0].End)
	assert.Equal(t, "+", hits[0].Strand)
	assert.Equal(t, 2000, hits[2].Start)
	assert.Equal(t, "-", hits[2].Strand)
	assert.Zero(t, hits[5].Start, "subject absent from the table stays unplaced")
}

func TestParseIPG_Malformed(t *testing.T) {
	_, err := ParseIPG(strings.NewReader("1\tINSDC\tSCAF1\n"), nil)
	assert.ErrorContains(t, err, "expected 11 columns")

	bad := "1\tINSDC\tSCAF1\tx\t1000\t+\ts1\tp\tOrg\tStr\tGCA_1\n"
	_, err = ParseIPG(strings.NewReader(bad), []*cluster.Hit{{Query: "q", Subject: "s1"}})
	assert.ErrorContains(t, err, "start")
}

func TestParseIPG_Empty(t *testing.T) {
	organisms, err := ParseIPG(strings.NewReader(""), testHits())
	require.NoError(t, err)
	assert.Empty(t, organisms)
}

// fakeFetcher serves one IPG table and records the batches requested.
type fakeFetcher struct {
	mu      sync.Mutex
	table   string
	err     error
	batches [][]string
}

func (f *fakeFetcher) FetchIPG(_ context.Context, ids []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, ids)
	if f.err != nil {
		return "", f.err
	}
	// Only the first batch carries the table, as if all groups came back
	// for it.
	if len(f.batches) == 1 {
		return f.table, nil
	}
	return "", nil
}

func TestSearch(t *testing.T) {
	fetcher := &fakeFetcher{table: ipgTable}
	s := &Searcher{Fetcher: fetcher}

	organisms, err := s.Search(context.Background(), testHits(), 2, 20000)
	require.NoError(t, err)

	require.Len(t, organisms, 2)
	assert.Equal(t, 1, organisms[0].CountHitClusters())
	assert.Len(t, organisms[0].Scaffolds[0].Clusters[0], 3)
	assert.Zero(t, organisms[1].CountHitClusters())

	require.Len(t, fetcher.batches, 1)
	assert.Equal(t, []string{"s1", "s2", "s3", "s6", "s99"}, fetcher.batches[0])
}

func TestSearch_Batches(t *testing.T) {
	fetcher := &fakeFetcher{table: ipgTable}
	s := &Searcher{Fetcher: fetcher, BatchSize: 2, Workers: 2}

	_, err := s.Search(context.Background(), testHits(), 2, 20000)
	require.NoError(t, err)

	assert.Len(t, fetcher.batches, 3)
	var all []string
	for _, b := range fetcher.batches {
		all = append(all, b...)
	}
	assert.ElementsMatch(t, []string{"s1", "s2", "s3", "s6", "s99"}, all)
}

func TestSearch_FetchError(t *testing.T) {
	boom := errors.New("efetch_ipg: unexpected HTTP status 400")
	s := &Searcher{Fetcher: &fakeFetcher{err: boom}}

	_, err := s.Search(context.Background(), testHits(), 3, 20000)
	assert.ErrorIs(t, err, boom)
}

func TestSearch_NegativeParameters(t *testing.T) {
	fetcher := &fakeFetcher{table: ipgTable}
	s := &Searcher{Fetcher: fetcher}

	_, err := s.Search(context.Background(), testHits(), -1, 100)
	assert.ErrorIs(t, err, cluster.ErrNegativeParameter)

	_, err = s.Search(context.Background(), testHits(), 1, -1)
	assert.ErrorIs(t, err, cluster.ErrNegativeParameter)

	assert.Empty(t, fetcher.batches)
}

func TestBatches(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Batches(ids, 2))
	assert.Equal(t, [][]string{ids}, Batches(ids, 0))
	assert.Nil(t, Batches(nil, 2))
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, []string{"s1", "s2", "s3", "s6", "s99"}, Subjects(testHits()))
}

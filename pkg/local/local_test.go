package local

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/query"
)

// mockRunner records DIAMOND invocations.
type mockRunner struct {
	output string
	err    error

	calls     [][]string
	queryText string
}

func (m *mockRunner) Program() string { return "diamond" }

func (m *mockRunner) Run(_ context.Context, args ...string) (string, error) {
	m.calls = append(m.calls, args)
	for i, a := range args {
		if a == "--query" && i+1 < len(args) {
			if data, err := os.ReadFile(args[i+1]); err == nil {
				m.queryText = string(data)
			}
		}
	}
	return m.output, m.err
}

type mockFetcher struct {
	seqs map[string]string
}

func (m *mockFetcher) FetchSequences(_ context.Context, _ []string) (map[string]string, error) {
	return m.seqs, nil
}

const diamondOutput = "QBE85648.1\tHIT1\t100.000\t100.000\t1.38e-127\t365\n" +
	"QBE85648.1\tHIT2\t20.000\t100.000\t1.38e-127\t365\n" +
	"QBE85648.1\tHIT3\t100.000\t20.000\t1.38e-127\t365\n" +
	"QBE85648.1\tHIT4\t100.000\t100.000\t0.011\t365\n"

func TestCommand(t *testing.T) {
	args := Command("fasta", "database", cluster.DefaultThresholds(), 1)
	assert.Equal(t, []string{
		"blastp",
		"--query", "fasta",
		"--db", "database",
		"--id", "30",
		"--evalue", "0.01",
		"--outfmt", "6", "qseqid", "sseqid", "pident", "qcovhsp", "evalue", "bitscore",
		"--threads", "1",
		"--query-cover", "50",
		"--max-hsps", "1",
	}, args)
}

func TestCommand_Threads(t *testing.T) {
	threads := func(args []string) string {
		for i, a := range args {
			if a == "--threads" {
				return args[i+1]
			}
		}
		return ""
	}
	assert.Equal(t, "1", threads(Command("q", "db", cluster.DefaultThresholds(), 0)))
	assert.Equal(t, "4", threads(Command("q", "db", cluster.DefaultThresholds(), 4)))

	args := Command("q", "db", cluster.Thresholds{MinIdentity: 42.5, MinCoverage: 80, MaxEvalue: 1e-5}, 8)
	assert.Subset(t, args, []string{"42.5", "80", "1e-05", "8"})
}

func TestParse(t *testing.T) {
	hits, err := Parse([]string{
		"QBE85648.1\tHIT1\t100.000\t100.000\t1.38e-127\t365",
		"QBE85648.1\tHIT2\t20.000\t100.000\t1.38e-127\t365",
		"QBE85648.1\tHIT3\t100.000\t20.000\t1.38e-127\t365",
		"QBE85648.1\tHIT4\t100.000\t100.000\t0.011\t365",
		"",
	}, cluster.DefaultThresholds())
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "QBE85648.1", hits[0].Query)
	assert.Equal(t, "HIT1", hits[0].Subject)
	assert.Equal(t, 100.0, hits[0].Identity)
	assert.Equal(t, 100.0, hits[0].Coverage)
	assert.Equal(t, 365.0, hits[0].Bitscore)
	assert.Equal(t, 1.38e-127, hits[0].Evalue)
}

func TestParse_NoHits(t *testing.T) {
	_, err := Parse(nil, cluster.DefaultThresholds())
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestParse_BadLine(t *testing.T) {
	_, err := Parse([]string{"a\tb\tc"}, cluster.DefaultThresholds())
	assert.ErrorContains(t, err, "expected 6 columns")
}

func TestSearch_File(t *testing.T) {
	runner := &mockRunner{output: diamondOutput}
	s := &Searcher{Runner: runner}

	hits, err := s.Search(context.Background(), Request{
		Database:   "database",
		Query:      query.Query{File: "test"},
		Thresholds: cluster.DefaultThresholds(),
	})
	require.NoError(t, err)

	assert.Len(t, hits, 1)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, Command("test", "database", cluster.DefaultThresholds(), 1), runner.calls[0])
}

func TestSearch_IDs(t *testing.T) {
	runner := &mockRunner{output: diamondOutput}
	fetcher := &mockFetcher{seqs: map[string]string{"SEQ1": "ABCDEF", "SEQ2": "ABCDEF", "SEQ3": "ABCDEF"}}
	s := &Searcher{Runner: runner, Fetcher: fetcher}

	_, err := s.Search(context.Background(), Request{
		Database:   "database",
		Query:      query.Query{IDs: []string{"SEQ1", "SEQ2", "SEQ3"}},
		Thresholds: cluster.DefaultThresholds(),
	})
	require.NoError(t, err)

	assert.Equal(t, ">SEQ1\nABCDEF\n>SEQ2\nABCDEF\n>SEQ3\nABCDEF\n", runner.queryText)

	// The temporary query file is removed afterwards.
	queryFile := runner.calls[0][2]
	_, statErr := os.Stat(queryFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSearch_MissingSequence(t *testing.T) {
	runner := &mockRunner{output: diamondOutput}
	s := &Searcher{Runner: runner, Fetcher: &mockFetcher{seqs: map[string]string{"SEQ1": "ABC"}}}

	_, err := s.Search(context.Background(), Request{
		Database: "database",
		Query:    query.Query{IDs: []string{"SEQ1", "SEQ2"}},
	})
	assert.ErrorContains(t, err, "SEQ2")
	assert.Empty(t, runner.calls)
}

func TestSearch_NoInput(t *testing.T) {
	s := &Searcher{Runner: &mockRunner{}}

	_, err := s.Search(context.Background(), Request{Database: "database"})
	assert.ErrorIs(t, err, query.ErrNoQuery)

	_, err = s.Search(context.Background(), Request{Query: query.Query{File: "q"}})
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestSearch_RunnerError(t *testing.T) {
	boom := errors.New("diamond blastp failed: no such database")
	s := &Searcher{Runner: &mockRunner{err: boom}}

	_, err := s.Search(context.Background(), Request{
		Database: "database",
		Query:    query.Query{File: "q"},
	})
	assert.ErrorIs(t, err, boom)
}

func TestFindProgram_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := FindProgram(Aliases...)
	assert.ErrorIs(t, err, ErrProgramNotFound)

	_, err = NewExecutor("")
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "Error: no such file", lastLine("diamond v2\nreading\nError: no such file"))
	assert.Equal(t, "single", lastLine("single"))
}

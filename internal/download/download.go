// Package download fetches genome assemblies from NCBI by assembly accession.
// It resolves each accession through the E-utilities (esearch, then esummary)
// to the GenBank FTP path and downloads the genomic FASTA over HTTPS.
package download

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pathogenwatch/amrpipe/internal/console"
	"github.com/pathogenwatch/amrpipe/internal/domain"
)

// DefaultBaseURL is the NCBI E-utilities endpoint
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Client downloads genome assemblies
type Client struct {
	HTTPClient  *http.Client
	BaseURL     string // E-utilities base, overridable for tests
	Email       string // identifies the user to NCBI, recommended by their policy
	Concurrency int
}

// NewClient creates a Client with sane defaults
func NewClient(email string, concurrency int) *Client {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Client{
		HTTPClient:  &http.Client{Timeout: 5 * time.Minute},
		BaseURL:     DefaultBaseURL,
		Email:       email,
		Concurrency: concurrency,
	}
}

// ReadAccessions reads one accession per line, skipping blanks
func ReadAccessions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening accession list: %w", err)
	}
	defer f.Close()

	var accessions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			accessions = append(accessions, line)
		}
	}
	return accessions, scanner.Err()
}

// FetchAll downloads every accession into outDir as <accession>.fna.gz.
// Downloads run with bounded concurrency; a failed accession is recorded in
// the report and does not stop the others.
func (c *Client) FetchAll(ctx context.Context, accessions []string, outDir string) (*domain.Report, error) {
	report := domain.NewReport(domain.StageDownload)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)

	for _, accession := range accessions {
		accession := accession
		g.Go(func() error {
			mu.Lock()
			report.Item()
			mu.Unlock()

			if err := c.fetchOne(ctx, accession, outDir); err != nil {
				console.Warnf("Error downloading genome for %s: %v", accession, err)
				mu.Lock()
				report.Fail(accession, err)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (c *Client) fetchOne(ctx context.Context, accession, outDir string) error {
	uid, err := c.searchAssembly(ctx, accession)
	if err != nil {
		return err
	}

	ftpPath, err := c.assemblyFTPPath(ctx, uid)
	if err != nil {
		return err
	}
	if ftpPath == "" {
		return fmt.Errorf("no GenBank FTP path for %s", accession)
	}

	fastaURL := httpsURL(ftpPath) + "/" + path.Base(ftpPath) + "_genomic.fna.gz"
	console.Infof("Downloading genome for %s from %s", accession, fastaURL)

	dest := filepath.Join(outDir, accession+domain.SequenceSuffix+".gz")
	if err := c.downloadFile(ctx, fastaURL, dest); err != nil {
		return err
	}

	console.Infof("Downloaded: %s", dest)
	return nil
}

// searchAssembly resolves an accession to an assembly UID
func (c *Client) searchAssembly(ctx context.Context, accession string) (string, error) {
	q := url.Values{
		"db":      {"assembly"},
		"term":    {accession},
		"retmode": {"json"},
	}
	if c.Email != "" {
		q.Set("email", c.Email)
	}

	var parsed struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/esearch.fcgi?"+q.Encode(), &parsed); err != nil {
		return "", err
	}
	if len(parsed.ESearchResult.IDList) == 0 {
		return "", fmt.Errorf("no results for accession %s", accession)
	}
	return parsed.ESearchResult.IDList[0], nil
}

// assemblyFTPPath fetches the assembly summary and extracts the GenBank path
func (c *Client) assemblyFTPPath(ctx context.Context, uid string) (string, error) {
	q := url.Values{
		"db":      {"assembly"},
		"id":      {uid},
		"retmode": {"json"},
	}

	// The summary result keys each document by its UID
	var parsed struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/esummary.fcgi?"+q.Encode(), &parsed); err != nil {
		return "", err
	}

	raw, ok := parsed.Result[uid]
	if !ok {
		return "", fmt.Errorf("summary missing document for uid %s", uid)
	}

	var doc struct {
		FTPPathGenBank string `json:"ftppath_genbank"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parsing assembly summary: %w", err)
	}
	return doc.FTPPathGenBank, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) downloadFile(ctx context.Context, u, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

// httpsURL rewrites NCBI's ftp:// paths to their HTTPS mirror
func httpsURL(ftpPath string) string {
	return strings.Replace(ftpPath, "ftp://", "https://", 1)
}

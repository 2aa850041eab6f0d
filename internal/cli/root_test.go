package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/JonMunkholm/bakery/internal/publish"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const sheetCSV = `Name,Description,Price,Category,Available,Calories,Scale,Image,Popular,ID
"Croissant","Buttery, flaky",3.25,Pastries,TRUE,310,,,true,croissant
Espresso,Double shot,2.50,coffee,true,5,,,false,
Danish,Apple,3.75,pastries,false,,,,,
`

// sheetServer serves sheetCSV as the sheet export.
func sheetServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gviz/tq") {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		io.WriteString(w, sheetCSV)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("SHEET_ID", "test-sheet")
	t.Setenv("SHEET_BASE_URL", baseURL)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	t.Setenv("PUBLISH_S3_BUCKET", "")
	t.Setenv("REQUIRE_API_KEY", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
}

type fakeS3 struct {
	bucket, key string
	body        []byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	body, err := io.ReadAll(in.Body)
	f.body = body
	return &s3.PutObjectOutput{}, err
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(deps)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFetch(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusOK).URL)

	out, err := run(t, Deps{}, "fetch")
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}

	var items []menu.MenuItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Name != "Croissant" || items[0].Description != "Buttery, flaky" || items[0].Category != "pastries" {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].ID != "item-1" {
		t.Errorf("synthetic id = %q, want item-1", items[1].ID)
	}
}

func TestFetch_Raw(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusOK).URL)

	out, err := run(t, Deps{}, "fetch", "--raw")
	if err != nil {
		t.Fatalf("fetch --raw error = %v", err)
	}
	if out != sheetCSV {
		t.Errorf("raw output = %q", out)
	}
}

func TestFetch_SheetIDFlag(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusOK).URL)
	t.Setenv("SHEET_ID", "")

	if _, err := run(t, Deps{}, "--sheet-id", "from-flag", "fetch"); err != nil {
		t.Fatalf("fetch with --sheet-id error = %v", err)
	}
}

func TestFetch_StatusError(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusNotFound).URL)

	if _, err := run(t, Deps{}, "fetch"); err == nil {
		t.Fatal("expected error for 404 sheet")
	}
}

func TestCategories(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusOK).URL)

	out, err := run(t, Deps{}, "categories")
	if err != nil {
		t.Fatalf("categories error = %v", err)
	}
	var cats []menu.Category
	if err := json.Unmarshal([]byte(out), &cats); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != "pastries" || cats[0].Count != 2 {
		t.Errorf("categories = %+v", cats)
	}
}

func TestPublish(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusOK).URL)
	t.Setenv("PUBLISH_S3_BUCKET", "menus")
	t.Setenv("PUBLISH_S3_KEY", "bakery/menu.json")

	client := &fakeS3{}
	deps := Deps{S3: func(ctx context.Context, region string) (publish.PutObjectAPI, error) {
		return client, nil
	}}

	out, err := run(t, deps, "publish")
	if err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if !strings.Contains(out, "published 3 items to s3://menus/bakery/menu.json") {
		t.Errorf("output = %q", out)
	}
	if client.bucket != "menus" || client.key != "bakery/menu.json" {
		t.Errorf("uploaded to %s/%s", client.bucket, client.key)
	}

	var doc publish.Document
	if err := json.Unmarshal(client.body, &doc); err != nil {
		t.Fatalf("uploaded body is not JSON: %v", err)
	}
	if len(doc.Items) != 3 || len(doc.Categories) != 2 || doc.UpdatedAt.IsZero() {
		t.Errorf("document = %+v", doc)
	}
}

func TestPublish_Disabled(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusOK).URL)

	_, err := run(t, Deps{}, "publish")
	if err == nil || !strings.Contains(err.Error(), "PUBLISH_S3_BUCKET") {
		t.Errorf("publish error = %v, want disabled error", err)
	}
}

func TestExecute_PrintsHint(t *testing.T) {
	setEnv(t, sheetServer(t, http.StatusNotFound).URL)

	var out, errOut bytes.Buffer
	code := Execute(context.Background(), []string{"--env-file", "", "fetch"}, &out, &errOut)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "SHEET002") {
		t.Errorf("stderr = %q, want SHEET002 hint", errOut.String())
	}
}

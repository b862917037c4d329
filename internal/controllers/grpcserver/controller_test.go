package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/lakeice/internal/storage"
	"github.com/chrissnell/lakeice/pkg/config"
	"github.com/chrissnell/lakeice/pkg/ice"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeStore struct {
	runs map[string]*storage.Run
	err  error
}

func (f *fakeStore) SaveRun(_ context.Context, run *storage.Run) error {
	f.runs[run.ID] = run
	return nil
}

func (f *fakeStore) GetRun(_ context.Context, id string) (*storage.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[id]
	if !ok {
		return nil, storage.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeStore) ListRuns(_ context.Context) ([]storage.RunSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []storage.RunSummary
	for _, r := range f.runs {
		out = append(out, r.Summary())
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func sampleRun() *storage.Run {
	return &storage.Run{
		ID:        "b7e0c1de-2f53-4b7a-9d61-0c4c2d1f9a10",
		Name:      "Lake Femund",
		Mode:      config.ModeAirTemperature,
		CreatedAt: day.Add(36 * time.Hour),
		Snapshots: []storage.Snapshot{
			{Date: day, IceThickness: 0.2, Layers: []ice.Layer{ice.MustLayer(ice.BlackIce, 0.2)}},
			{Date: day.AddDate(0, 0, 1), IceThickness: 0.21, SnowThickness: 0.03, Layers: []ice.Layer{
				ice.MustLayer(ice.Snow, 0.03), ice.MustLayer(ice.BlackIce, 0.21),
			}},
		},
	}
}

// newTestClient serves a controller over an in-memory listener and returns a client for it
func newTestClient(t *testing.T, store *fakeStore) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	ctrl, err := NewController(ctx, &wg, store, config.GRPCServerData{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	lis := bufconn.Listen(1 << 20)
	ctrl.serve(lis)
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	conn, err := grpc.NewClient("passthrough:///lakeice",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestListRuns(t *testing.T) {
	run := sampleRun()
	client := newTestClient(t, &fakeStore{runs: map[string]*storage.Run{run.ID: run}})

	runs, err := client.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Name != run.Name || got.Steps != 2 {
		t.Errorf("unexpected summary %+v", got)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) || !got.StartDate.Equal(day) || !got.EndDate.Equal(day.AddDate(0, 0, 1)) {
		t.Errorf("summary times %v %v..%v", got.CreatedAt, got.StartDate, got.EndDate)
	}
}

func TestGetRun(t *testing.T) {
	run := sampleRun()
	client := newTestClient(t, &fakeStore{runs: map[string]*storage.Run{run.ID: run}})

	got, err := client.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != run.ID || len(got.Snapshots) != 2 {
		t.Fatalf("unexpected run %+v", got)
	}
	last := got.Snapshots[1]
	if !last.Date.Equal(day.AddDate(0, 0, 1)) || last.SnowThickness != 0.03 {
		t.Errorf("unexpected snapshot %+v", last)
	}
	if len(last.Layers) != 2 || last.Layers[0].Type != ice.Snow || last.Layers[1].Type != ice.BlackIce {
		t.Errorf("layers not carried over the wire: %+v", last.Layers)
	}
}

func TestGetRunErrors(t *testing.T) {
	run := sampleRun()
	tests := []struct {
		name  string
		store *fakeStore
		id    string
		code  codes.Code
	}{
		{"missing id", &fakeStore{runs: map[string]*storage.Run{}}, "", codes.InvalidArgument},
		{"unknown run", &fakeStore{runs: map[string]*storage.Run{run.ID: run}}, "nope", codes.NotFound},
		{"store failure", &fakeStore{err: errors.New("disk gone")}, run.ID, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.store)
			_, err := client.GetRun(context.Background(), tt.id)
			if status.Code(err) != tt.code {
				t.Errorf("code = %v (%v), expected %v", status.Code(err), err, tt.code)
			}
		})
	}
}

func TestListRunsStoreFailure(t *testing.T) {
	client := newTestClient(t, &fakeStore{err: errors.New("disk gone")})
	if _, err := client.ListRuns(context.Background()); status.Code(err) != codes.Internal {
		t.Errorf("expected Internal, got %v", err)
	}
}

func TestNewControllerRequiresStore(t *testing.T) {
	if _, err := NewController(context.Background(), &sync.WaitGroup{}, nil, config.GRPCServerData{}, nil); err == nil {
		t.Error("expected an error without a run store")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := msgpackCodec{}
	data, err := c.Marshal(&GetRunRequest{ID: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	var req GetRunRequest
	if err := c.Unmarshal(data, &req); err != nil {
		t.Fatal(err)
	}
	if req.ID != "abc" || c.Name() != "msgpack" {
		t.Errorf("got %+v from codec %s", req, c.Name())
	}
}

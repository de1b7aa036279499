package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

type fakeAPI struct {
	exists      bool
	created     *qc.CreateCollection
	fieldIndex  *qc.CreateFieldIndexCollection
	upserted    *qc.UpsertPoints
	queried     *qc.QueryPoints
	deleted     []*qc.DeletePoints
	queryResult []*qc.ScoredPoint
	queryErr    error
}

func (f *fakeAPI) CollectionExists(context.Context, string) (bool, error) { return f.exists, nil }
func (f *fakeAPI) CreateCollection(_ context.Context, req *qc.CreateCollection) error {
	f.created = req
	return nil
}
func (f *fakeAPI) CreateFieldIndex(_ context.Context, req *qc.CreateFieldIndexCollection) (*qc.UpdateResult, error) {
	f.fieldIndex = req
	return &qc.UpdateResult{}, nil
}
func (f *fakeAPI) Upsert(_ context.Context, req *qc.UpsertPoints) (*qc.UpdateResult, error) {
	f.upserted = req
	return &qc.UpdateResult{}, nil
}
func (f *fakeAPI) Query(_ context.Context, req *qc.QueryPoints) ([]*qc.ScoredPoint, error) {
	f.queried = req
	return f.queryResult, f.queryErr
}
func (f *fakeAPI) Delete(_ context.Context, req *qc.DeletePoints) (*qc.UpdateResult, error) {
	f.deleted = append(f.deleted, req)
	return &qc.UpdateResult{}, nil
}
func (f *fakeAPI) Close() error { return nil }

func newTestStore(t *testing.T, api *fakeAPI) *Store {
	t.Helper()
	s, err := NewWithAPI(logger.Nop(), Config{Host: "localhost", Collection: "passages", VectorDim: 3}, api)
	require.NoError(t, err)
	return s
}

func scored(id uuid.UUID, tenant uuid.UUID, score float32) *qc.ScoredPoint {
	return &qc.ScoredPoint{
		Id:      qc.NewIDUUID(id.String()),
		Score:   score,
		Payload: qc.NewValueMap(map[string]any{payloadTenantKey: tenant.String()}),
	}
}

func TestEnsureCollectionCreatesEuclidWithTenantIndex(t *testing.T) {
	api := &fakeAPI{}
	s := newTestStore(t, api)
	require.NoError(t, s.EnsureCollection(context.Background()))
	require.NotNil(t, api.created)
	params := api.created.GetVectorsConfig().GetParams()
	assert.Equal(t, qc.Distance_Euclid, params.GetDistance())
	assert.Equal(t, uint64(3), params.GetSize())
	require.NotNil(t, api.fieldIndex)
	assert.Equal(t, payloadTenantKey, api.fieldIndex.GetFieldName())
}

func TestEnsureCollectionSkipsExisting(t *testing.T) {
	api := &fakeAPI{exists: true}
	require.NoError(t, newTestStore(t, api).EnsureCollection(context.Background()))
	assert.Nil(t, api.created)
}

func TestSearchFiltersByTenantAndSortsByDistanceThenID(t *testing.T) {
	tenant := uuid.New()
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	api := &fakeAPI{queryResult: []*qc.ScoredPoint{
		scored(c, tenant, 0.5),
		scored(b, tenant, 0.2),
		scored(a, tenant, 0.5),
		scored(uuid.New(), uuid.New(), 0.1),
	}}
	s := newTestStore(t, api)

	hits, err := s.Search(context.Background(), tenant, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3, "foreign point must be dropped")
	assert.Equal(t, []uuid.UUID{b, a, c}, []uuid.UUID{hits[0].PassageID, hits[1].PassageID, hits[2].PassageID})

	must := api.queried.GetFilter().GetMust()
	require.Len(t, must, 1)
	field := must[0].GetField()
	assert.Equal(t, payloadTenantKey, field.GetKey())
	assert.Equal(t, tenant.String(), field.GetMatch().GetKeyword())
	assert.Equal(t, uint64(10), api.queried.GetLimit())
}

func TestSearchNilTenantFailsClosed(t *testing.T) {
	api := &fakeAPI{}
	hits, err := newTestStore(t, api).Search(context.Background(), uuid.Nil, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Nil(t, api.queried)
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	_, err := newTestStore(t, &fakeAPI{}).Search(context.Background(), uuid.New(), []float32{1, 0}, 5)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OperationErrorValidation, opErr.Code)
}

func TestSearchClassifiesUnavailable(t *testing.T) {
	api := &fakeAPI{queryErr: status.Error(codes.Unavailable, "down")}
	_, err := newTestStore(t, api).Search(context.Background(), uuid.New(), []float32{1, 0, 0}, 5)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OperationErrorTransportFailed, opErr.Code)
}

func TestSearchPassesCancellationThrough(t *testing.T) {
	api := &fakeAPI{queryErr: context.Canceled}
	_, err := newTestStore(t, api).Search(context.Background(), uuid.New(), []float32{1, 0, 0}, 5)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestUpsertStampsTenantPayload(t *testing.T) {
	api := &fakeAPI{}
	tenant := uuid.New()
	pid := uuid.New()
	require.NoError(t, newTestStore(t, api).Upsert(context.Background(), tenant, []Point{{PassageID: pid, Vector: []float32{1, 2, 3}}}))
	require.Len(t, api.upserted.GetPoints(), 1)
	p := api.upserted.GetPoints()[0]
	assert.Equal(t, pid.String(), p.GetId().GetUuid())
	assert.Equal(t, tenant.String(), payloadString(p.GetPayload(), payloadTenantKey))
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	err := newTestStore(t, &fakeAPI{}).Upsert(context.Background(), uuid.New(), []Point{{PassageID: uuid.New(), Vector: []float32{1}}})
	require.Error(t, err)
}

func TestDeletesAreTenantScoped(t *testing.T) {
	api := &fakeAPI{}
	s := newTestStore(t, api)
	tenant := uuid.New()
	require.NoError(t, s.DeletePassages(context.Background(), tenant, []uuid.UUID{uuid.New()}))
	require.NoError(t, s.DeleteTenant(context.Background(), tenant))
	require.Len(t, api.deleted, 2)
	for _, d := range api.deleted {
		must := d.GetPoints().GetFilter().GetMust()
		require.NotEmpty(t, must)
		assert.Equal(t, tenant.String(), must[0].GetField().GetMatch().GetKeyword())
	}
	require.Error(t, s.DeleteTenant(context.Background(), uuid.Nil))
}

func TestValidateConfig(t *testing.T) {
	var cfgErr *ConfigError
	require.ErrorAs(t, ValidateConfig(Config{Collection: "c", VectorDim: 3}), &cfgErr)
	assert.Equal(t, ConfigErrorMissingHost, cfgErr.Code)
	require.ErrorAs(t, ValidateConfig(Config{Host: "h", VectorDim: 3}), &cfgErr)
	assert.Equal(t, ConfigErrorMissingCollection, cfgErr.Code)
	require.ErrorAs(t, ValidateConfig(Config{Host: "h", Collection: "c"}), &cfgErr)
	assert.Equal(t, ConfigErrorInvalidVectorDim, cfgErr.Code)
	require.NoError(t, ValidateConfig(Config{Host: "h", Collection: "c", VectorDim: 3}))
}

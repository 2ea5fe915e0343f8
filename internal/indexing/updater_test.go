package indexing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/lri/internal/config"
	"github.com/standardbeagle/lri/internal/persist"
	"github.com/standardbeagle/lri/internal/store"
	"github.com/standardbeagle/lri/internal/symbols"
	"github.com/standardbeagle/lri/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	restController = "org.springframework.web.bind.annotation.RestController"
	getMapping     = "org.springframework.web.bind.annotation.GetMapping"
)

func controllerType(typeName, file, member, path string) *symbols.FakeType {
	return &symbols.FakeType{
		TypeName:    typeName,
		File:        file,
		Module:      "shop." + typeName + ".main",
		Annotations: map[string]map[string]string{restController: {}},
		Methods: []*symbols.FakeMember{
			{
				MemberName: member,
				File:       file,
				Offset:     1,
				Annotations: map[string]map[string]string{
					getMapping: {"value": `"` + path + `"`},
				},
			},
		},
	}
}

func testHarness(t *testing.T) (*config.Config, *symbols.FakeProvider, *store.Store, *Updater) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Index.WatchMode = false

	provider := symbols.NewFakeProvider()
	st := store.New()
	persister := persist.New(cfg.Project.Root, provider)
	updater := NewUpdater(cfg, provider, st, persister)
	return cfg, provider, st, updater
}

func TestUpdater_FullScanPopulatesStore(t *testing.T) {
	_, provider, st, u := testHarness(t)
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))
	provider.AddType(controllerType("OrderController", "OrderController.java", "listOrders", "/api/order/list"))

	require.NoError(t, u.FullScan(context.Background()))
	defer u.Stop()

	assert.False(t, u.IsIndexing())
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []string{"OrderController.java", "UserController.java"}, st.Files())
}

func TestUpdater_StartRestoresPersistedIndex(t *testing.T) {
	cfg, provider, st, u := testHarness(t)
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))

	// First session indexes and persists through the write-through hook.
	require.NoError(t, u.FullScan(context.Background()))
	u.Stop()
	require.Zero(t, st.Len())

	// Second session restores without a full scan.
	st2 := store.New()
	persister := persist.New(cfg.Project.Root, provider)
	u2 := NewUpdater(cfg, provider, st2, persister)
	require.NoError(t, u2.Start(context.Background()))
	defer u2.Stop()

	assert.False(t, u2.IsIndexing())
	require.Equal(t, 1, st2.Len())
	assert.Equal(t, "/api/user/info", st2.CurrentRoutes()[0].Path)
}

func TestUpdater_StartFallsBackToScanWithoutSnapshot(t *testing.T) {
	_, provider, st, u := testHarness(t)
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))

	require.NoError(t, u.Start(context.Background()))
	defer u.Stop()

	assert.Equal(t, 1, st.Len())
}

func TestUpdater_BatchWithinMinIntervalIsDropped(t *testing.T) {
	_, provider, st, u := testHarness(t)
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))

	require.NoError(t, u.FullScan(context.Background()))
	defer u.Stop()

	// A change arrives right after the scan: inside the minimum interval,
	// so the batch is dropped and the stale route stays cached.
	provider.Types[0].Methods[0].Annotations[getMapping]["value"] = `"/api/user/info2"`
	u.handleBatch([]types.FileEvent{{Path: "UserController.java", Kind: types.FileModified}})

	require.Equal(t, 1, st.Len())
	assert.Equal(t, "/api/user/info", st.CurrentRoutes()[0].Path)
}

func TestUpdater_BatchAfterIntervalRescansOnlyChangedFiles(t *testing.T) {
	cfg, provider, st, u := testHarness(t)
	cfg.Index.MinRescanIntervalSec = 0
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))
	provider.AddType(controllerType("OrderController", "OrderController.java", "listOrders", "/api/order/list"))

	require.NoError(t, u.FullScan(context.Background()))
	defer u.Stop()
	orderBefore := st.RoutesForFile("OrderController.java")

	provider.Types[0].Methods[0].Annotations[getMapping]["value"] = `"/api/user/profile"`
	u.handleBatch([]types.FileEvent{{Path: "UserController.java", Kind: types.FileModified}})

	userRoutes := st.RoutesForFile("UserController.java")
	require.Len(t, userRoutes, 1)
	assert.Equal(t, "/api/user/profile", userRoutes[0].Path)
	assert.Equal(t, orderBefore, st.RoutesForFile("OrderController.java"),
		"updating one file must not alter another file's routes")
}

func TestUpdater_DeletedFileLosesItsRoutes(t *testing.T) {
	cfg, provider, st, u := testHarness(t)
	cfg.Index.MinRescanIntervalSec = 0
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))
	provider.AddType(controllerType("OrderController", "OrderController.java", "listOrders", "/api/order/list"))

	require.NoError(t, u.FullScan(context.Background()))
	defer u.Stop()

	provider.Missing["UserController.java"] = true
	u.handleBatch([]types.FileEvent{{Path: "UserController.java", Kind: types.FileDeleted}})

	assert.Equal(t, []string{"OrderController.java"}, st.Files())
	assert.Equal(t, 1, st.Len())
}

func TestUpdater_FileGainingControllerGainsRoutes(t *testing.T) {
	cfg, provider, st, u := testHarness(t)
	cfg.Index.MinRescanIntervalSec = 0

	require.NoError(t, u.FullScan(context.Background()))
	defer u.Stop()
	require.Zero(t, st.Len())

	provider.AddType(controllerType("NewController", "NewController.java", "create", "/api/new"))
	u.handleBatch([]types.FileEvent{{Path: "NewController.java", Kind: types.FileCreated}})

	require.Equal(t, 1, st.Len())
	assert.Equal(t, "/api/new", st.CurrentRoutes()[0].Path)
}

func TestUpdater_StopInvalidatesStore(t *testing.T) {
	_, provider, st, u := testHarness(t)
	provider.AddType(controllerType("UserController", "UserController.java", "getInfo", "/api/user/info"))

	require.NoError(t, u.FullScan(context.Background()))
	u.Stop()

	assert.Zero(t, st.Len())
	assert.True(t, st.IsIndexing())
}

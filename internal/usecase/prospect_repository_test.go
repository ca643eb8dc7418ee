package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

var testActor = entity.Actor{UserID: "8f14e45f-ceea-467f-a8f8-3c4f6b7e2a10", Email: "ana@irrelevant.dev"}

func newTestRepository(g *memoryGateway, opts ...Option) *ProspectRepository {
	return NewProspectRepository(g, activityTable{g}, fileTable{g}, nil, opts...)
}

func acmeInput() CreateProspectInput {
	return CreateProspectInput{
		CompanyName:      "Acme",
		ContactName:      "Wile E. Coyote",
		FirstContactDate: "2024-03-01",
		AssignedTo:       "ana@irrelevant.dev",
	}
}

func TestCreateProspectPrependsAndLogsActivity(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	_, err := repo.Create(ctx, testActor, CreateProspectInput{
		CompanyName: "Globex", ContactName: "Hank", FirstContactDate: "2024-02-01",
	})
	require.NoError(t, err)

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()

	assert.Equal(t, entity.FirstStage, created.CurrentStage)
	assert.Equal(t, entity.PriorityMedium, created.PriorityLevel)

	cached := repo.Prospects()
	require.Len(t, cached, 2)
	assert.Equal(t, "Acme", cached[0].CompanyName)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", listed[0].CompanyName)

	assert.Equal(t, 1, g.activitiesOfType(created.ID, entity.ActivityProspectCreated))
	activities := repo.Activities(ctx, created.ID)
	require.Len(t, activities, 1)
	assert.Equal(t, "Prospecto creado: Acme", activities[0].Description)
	assert.Equal(t, testActor.Email, activities[0].CreatedBy)
}

func TestCreateProspectDefaultsAssigneeToActor(t *testing.T) {
	g := newMemoryGateway()
	repo := newTestRepository(g)

	input := acmeInput()
	input.AssignedTo = ""
	created, err := repo.Create(context.Background(), testActor, input)
	require.NoError(t, err)
	repo.Wait()

	assert.Equal(t, testActor.Email, created.AssignedTo)
}

func TestCreateProspectGatewayFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	notifier := &recordingNotifier{}
	repo := newTestRepository(g, WithNotifier(notifier))

	_, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()
	before := len(repo.Prospects())

	g.failInsert = true
	created, err := repo.Create(ctx, testActor, acmeInput())

	assert.Nil(t, created)
	require.Error(t, err)
	assert.True(t, IsDomainError(err))
	assert.Equal(t, CodeConflict, ErrorCode(err))
	assert.Len(t, repo.Prospects(), before)
	assert.Equal(t, NoticeError, notifier.last().Kind)
}

func TestCreateProspectValidation(t *testing.T) {
	g := newMemoryGateway()
	repo := newTestRepository(g)

	input := acmeInput()
	input.CompanyName = ""
	input.FirstContactDate = "01/03/2024"
	negative := -10.0
	input.EstimatedValue = &negative

	_, err := repo.Create(context.Background(), testActor, input)

	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))
	assert.Contains(t, err.Error(), "company_name")
	assert.Contains(t, err.Error(), "first_contact_date")
	assert.Contains(t, err.Error(), "estimated_value")
	assert.Empty(t, repo.Prospects())
}

func TestCreateProspectAuditFailureDoesNotPropagate(t *testing.T) {
	g := newMemoryGateway()
	g.failAudit = true
	observer := new(MockObserver)
	observer.On("ProspectCreated").Return()
	observer.On("AuditFailed").Return()
	repo := newTestRepository(g, WithObserver(observer))

	created, err := repo.Create(context.Background(), testActor, acmeInput())
	repo.Wait()

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, repo.Prospects(), 1)
	observer.AssertCalled(t, "AuditFailed")
}

func TestUpdateStageLogsExactlyOneActivity(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)

	two := 2
	_, err = repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{CurrentStage: &two})
	require.NoError(t, err)
	repo.Wait()
	before := g.activitiesOfType(created.ID, entity.ActivityStageUpdated)

	three := 3
	updated, err := repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{CurrentStage: &three})
	require.NoError(t, err)
	repo.Wait()

	assert.Equal(t, 3, updated.CurrentStage)
	assert.Equal(t, before+1, g.activitiesOfType(created.ID, entity.ActivityStageUpdated))
}

func TestUpdateValueOnlyLogsNothing(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()

	value := 25000.0
	_, err = repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{EstimatedValue: entity.Some(value)})
	require.NoError(t, err)
	repo.Wait()

	assert.Equal(t, 0, g.activitiesOfType(created.ID, entity.ActivityStageUpdated))
	cached, ok := repo.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, 25000.0, cached.Value())
}

func TestUpdateSameStageLogsWithoutNotifyingListeners(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	listener := new(MockStageListener)
	observer := new(MockObserver)
	observer.On("ProspectCreated").Return()
	repo := newTestRepository(g, WithStageListener(listener), WithObserver(observer))

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)

	one := 1
	_, err = repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{CurrentStage: &one})
	require.NoError(t, err)
	repo.Wait()

	assert.Equal(t, 1, g.activitiesOfType(created.ID, entity.ActivityStageUpdated))
	listener.AssertNotCalled(t, "StageChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	observer.AssertNotCalled(t, "StageChanged", mock.Anything, mock.Anything)
}

func TestUpdateClearsNullableField(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	input := acmeInput()
	reason := "budget frozen"
	input.LostReason = &reason
	value := 900.0
	input.EstimatedValue = &value
	created, err := repo.Create(ctx, testActor, input)
	require.NoError(t, err)
	require.NotNil(t, created.LostReason)

	_, err = repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{
		LostReason:     entity.Null[string](),
		EstimatedValue: entity.Null[float64](),
	})
	require.NoError(t, err)
	repo.Wait()

	cached, ok := repo.Get(created.ID)
	require.True(t, ok)
	assert.Nil(t, cached.LostReason)
	assert.Nil(t, cached.EstimatedValue)
}

func TestUpdatePreservesOrderAndIdentity(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	first, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	second, err := repo.Create(ctx, testActor, CreateProspectInput{
		CompanyName: "Initech", ContactName: "Bill", FirstContactDate: "2024-03-02",
	})
	require.NoError(t, err)

	name := "Acme Corp"
	_, err = repo.Update(ctx, testActor, first.ID, entity.ProspectUpdate{CompanyName: &name})
	require.NoError(t, err)
	repo.Wait()

	cached := repo.Prospects()
	require.Len(t, cached, 2)
	assert.Equal(t, second.ID, cached[0].ID)
	assert.Equal(t, first.ID, cached[1].ID)
	assert.Equal(t, "Acme Corp", cached[1].CompanyName)
}

func TestUpdateFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	notifier := &recordingNotifier{}
	repo := newTestRepository(g, WithNotifier(notifier))

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()

	g.failUpdate = true
	four := 4
	_, err = repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{CurrentStage: &four})
	repo.Wait()

	require.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	cached, _ := repo.Get(created.ID)
	assert.Equal(t, 1, cached.CurrentStage)
	assert.Equal(t, 0, g.activitiesOfType(created.ID, entity.ActivityStageUpdated))

	notice := notifier.last()
	assert.Equal(t, NoticeError, notice.Kind)
	assert.Equal(t, "prospect store unavailable, try again later", notice.Description)
	assert.NotContains(t, notice.Description, errGatewayDown.Error())
	assert.Equal(t, testActor.UserID, notice.UserID)
}

func TestUpdateRejectsInvalidStage(t *testing.T) {
	g := newMemoryGateway()
	repo := newTestRepository(g)

	six := 6
	_, err := repo.Update(context.Background(), testActor, "any", entity.ProspectUpdate{CurrentStage: &six})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = repo.Update(context.Background(), testActor, "any", entity.ProspectUpdate{})
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestUpdateUnknownProspect(t *testing.T) {
	g := newMemoryGateway()
	repo := newTestRepository(g)

	two := 2
	_, err := repo.Update(context.Background(), testActor, "missing", entity.ProspectUpdate{CurrentStage: &two})

	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestStageListenersFireOnStageChange(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	listener := new(MockStageListener)
	listener.On("StageChanged", mock.Anything, mock.MatchedBy(func(p entity.Prospect) bool {
		return p.CurrentStage == 2
	}), 1, testActor).Return(errGatewayDown)
	repo := newTestRepository(g, WithStageListener(listener))

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)

	two := 2
	_, err = repo.Update(ctx, testActor, created.ID, entity.ProspectUpdate{CurrentStage: &two})
	repo.Wait()

	require.NoError(t, err)
	listener.AssertNumberOfCalls(t, "StageChanged", 1)
}

func TestDeleteRemovesFromCache(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()

	require.NoError(t, repo.Delete(ctx, testActor, created.ID))

	_, ok := repo.Get(created.ID)
	assert.False(t, ok)
	assert.Empty(t, repo.Prospects())
}

func TestDeleteFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()

	g.failDelete = true
	err = repo.Delete(ctx, testActor, created.ID)

	require.Error(t, err)
	assert.Len(t, repo.Prospects(), 1)
}

func TestListFailureKeepsLastKnownCache(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	repo := newTestRepository(g)

	_, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()
	_, err = repo.List(ctx)
	require.NoError(t, err)
	assert.NoError(t, repo.Err())

	g.failSelect = true
	_, err = repo.List(ctx)

	require.Error(t, err)
	assert.False(t, repo.Loading())
	assert.Error(t, repo.Err())
	assert.Len(t, repo.Prospects(), 1)
}

// pausedGateway takes its snapshot, reports it on taken and then waits for
// one value on release before returning it.
type pausedGateway struct {
	*memoryGateway
	taken   chan struct{}
	release chan struct{}
}

func newPausedGateway(g *memoryGateway) pausedGateway {
	return pausedGateway{memoryGateway: g, taken: make(chan struct{}, 2), release: make(chan struct{})}
}

func (b pausedGateway) SelectAll(ctx context.Context) ([]entity.Prospect, error) {
	rows, err := b.memoryGateway.SelectAll(ctx)
	b.taken <- struct{}{}
	<-b.release
	return rows, err
}

func startList(repo *ProspectRepository) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := repo.List(context.Background())
		done <- err
	}()
	return done
}

func waitList(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("List did not return")
	}
}

func TestListLoadingFlag(t *testing.T) {
	g := newMemoryGateway()
	bg := newPausedGateway(g)
	repo := NewProspectRepository(bg, activityTable{g}, fileTable{g}, nil)

	done := startList(repo)
	<-bg.taken
	assert.True(t, repo.Loading())
	bg.release <- struct{}{}

	waitList(t, done)
	assert.False(t, repo.Loading())
}

func TestOverlappingListsKeepLoadingUntilLastReturns(t *testing.T) {
	g := newMemoryGateway()
	bg := newPausedGateway(g)
	repo := NewProspectRepository(bg, activityTable{g}, fileTable{g}, nil)

	first := startList(repo)
	second := startList(repo)
	<-bg.taken
	<-bg.taken

	bg.release <- struct{}{}
	select {
	case err := <-first:
		require.NoError(t, err)
	case err := <-second:
		require.NoError(t, err)
		second = first
	case <-time.After(2 * time.Second):
		t.Fatal("List did not return")
	}
	assert.True(t, repo.Loading())

	bg.release <- struct{}{}
	waitList(t, second)
	assert.False(t, repo.Loading())
	assert.Empty(t, repo.changed)
}

func TestCreateDuringListSurvivesSnapshot(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	bg := newPausedGateway(g)
	repo := NewProspectRepository(bg, activityTable{g}, fileTable{g}, nil)

	globex, err := repo.Create(ctx, testActor, CreateProspectInput{
		CompanyName: "Globex", ContactName: "Hank", FirstContactDate: "2024-02-01",
	})
	require.NoError(t, err)

	done := startList(repo)
	<-bg.taken

	created, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)
	repo.Wait()

	bg.release <- struct{}{}
	waitList(t, done)

	cached := repo.Prospects()
	require.Len(t, cached, 2)
	assert.Equal(t, created.ID, cached[0].ID)
	assert.Equal(t, globex.ID, cached[1].ID)
}

func TestUpdateAndDeleteDuringListSurviveSnapshot(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway()
	bg := newPausedGateway(g)
	repo := NewProspectRepository(bg, activityTable{g}, fileTable{g}, nil)

	globex, err := repo.Create(ctx, testActor, CreateProspectInput{
		CompanyName: "Globex", ContactName: "Hank", FirstContactDate: "2024-02-01",
	})
	require.NoError(t, err)
	acme, err := repo.Create(ctx, testActor, acmeInput())
	require.NoError(t, err)

	done := startList(repo)
	<-bg.taken

	name := "Globex Corporation"
	_, err = repo.Update(ctx, testActor, globex.ID, entity.ProspectUpdate{CompanyName: &name})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, testActor, acme.ID))
	repo.Wait()

	bg.release <- struct{}{}
	waitList(t, done)

	cached := repo.Prospects()
	require.Len(t, cached, 1)
	assert.Equal(t, globex.ID, cached[0].ID)
	assert.Equal(t, "Globex Corporation", cached[0].CompanyName)
	assert.Empty(t, repo.changed)

	// with nothing in flight the next List is taken as is
	done = startList(repo)
	<-bg.taken
	bg.release <- struct{}{}
	waitList(t, done)
	assert.Len(t, repo.Prospects(), 1)
}

func TestSecondaryReadsSwallowErrors(t *testing.T) {
	g := newMemoryGateway()
	g.files = []entity.ProspectFile{
		{ID: "f1", ProspectID: "p1", Stage: 1, FileName: "brief.pdf", UploadedAt: g.base},
		{ID: "f2", ProspectID: "p1", Stage: 3, FileName: "roadmap.pdf", UploadedAt: g.base.Add(time.Hour)},
	}
	repo := newTestRepository(g)

	files := repo.Files(context.Background(), "p1")
	require.Len(t, files, 2)
	assert.Equal(t, "roadmap.pdf", files[0].FileName)

	assert.NotNil(t, repo.Activities(context.Background(), "p1"))
	assert.Empty(t, repo.Activities(context.Background(), "p1"))

	g.failSelect = true
	assert.Equal(t, []entity.ProspectFile{}, repo.Files(context.Background(), "p1"))
	assert.Equal(t, []entity.ProspectActivity{}, repo.Activities(context.Background(), "p1"))
}

func TestPlaceholderProspect(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

	input := PlaceholderProspect(testActor, now)

	assert.Equal(t, "Nueva Empresa", input.CompanyName)
	assert.Equal(t, "Contacto Principal", input.ContactName)
	assert.Equal(t, "2024-06-15", input.FirstContactDate)
	assert.Equal(t, testActor.Email, input.AssignedTo)
	assert.Empty(t, ValidateCreateProspectInput(input))
}

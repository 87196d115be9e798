package conduit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
	"github.com/PentesterFlow/phabconduit/pkg/conduit/conduittest"
)

func newTestFactory(t *testing.T) (*conduittest.Server, *conduit.Factory) {
	t.Helper()
	srv := conduittest.NewServer(t)
	f := conduit.NewFactory(srv.Credential(testToken))
	t.Cleanup(f.Close)
	return srv, f
}

// lastRequest asserts the path of the most recent call and returns its body
// without the leading token pair.
func lastRequest(t *testing.T, srv *conduittest.Server, method string) string {
	t.Helper()
	reqs := srv.Requests()
	require.NotEmpty(t, reqs)
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/api/"+method, last.Path)
	prefix := "api.token=" + testToken
	require.Contains(t, last.Body, prefix)
	if last.Body == prefix {
		return ""
	}
	return last.Body[len(prefix)+1:]
}

func TestManiphestModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("maniphest.query", `[]`)
	srv.ResultJSON("maniphest.update", `{"id": "12"}`)
	m := f.Maniphest()
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() (conduit.Result, error)
		method string
		body   string
	}{
		{"open", func() (conduit.Result, error) { return m.Open(ctx) }, "maniphest.query", "status=status-open"},
		{"open and subscribed", func() (conduit.Result, error) { return m.OpenAndSubscribed(ctx, "PHID-USER-1") },
			"maniphest.query", "status=status-open&ccPHIDs[0]=PHID-USER-1"},
		{"open by project", func() (conduit.Result, error) { return m.OpenByProjectPHID(ctx, "PHID-PROJ-1") },
			"maniphest.query", "status=status-open&projectPHIDs[0]=PHID-PROJ-1"},
		{"comment", func() (conduit.Result, error) { return m.CommentByID(ctx, 12, "looks good") },
			"maniphest.update", "id=12&comments=looks good"},
		{"resolve", func() (conduit.Result, error) { return m.ResolveByID(ctx, 12) },
			"maniphest.update", "id=12&comments=marking closed&status=resolved"},
		{"invalid", func() (conduit.Result, error) { return m.InvalidByID(ctx, 12) },
			"maniphest.update", "id=12&comments=marking closed&status=invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, tt.body, lastRequest(t, srv, tt.method))
		})
	}
}

func TestUserModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("user.whoami", `{"phid": "PHID-USER-1", "userName": "bot", "roles": ["verified"]}`)
	srv.ResultJSON("user.query", `[]`)
	ctx := context.Background()

	res, err := f.User().WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", lastRequest(t, srv, "user.whoami"))

	info, err := conduit.DecodeUserInfo(res)
	require.NoError(t, err)
	assert.Equal(t, "PHID-USER-1", info.PHID)
	assert.Equal(t, []string{"verified"}, info.Roles)
	assert.Equal(t, "bot PHID-USER-1", info.String())

	_, err = f.User().ByPHIDs(ctx, "PHID-USER-1", "PHID-USER-2")
	require.NoError(t, err)
	assert.Equal(t, "phids[0]=PHID-USER-1&phids[1]=PHID-USER-2", lastRequest(t, srv, "user.query"))

	_, err = f.User().Query(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", lastRequest(t, srv, "user.query"))
}

func TestProjectModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("project.query", `{"data": {"PHID-PROJ-2": {"phid": "PHID-PROJ-2", "name": "Ops", "id": 2}, "PHID-PROJ-1": {"phid": "PHID-PROJ-1", "name": "Ops", "id": 1}}}`)
	ctx := context.Background()

	res, err := f.Project().ByName(ctx, "Ops")
	require.NoError(t, err)
	assert.Equal(t, "names[0]=Ops", lastRequest(t, srv, "project.query"))

	projects, err := conduit.DecodeProjects(res)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "PHID-PROJ-2", projects[0].PHID)
	assert.Equal(t, "1", projects[1].ID.String())

	_, err = f.Project().Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, "status=status-open", lastRequest(t, srv, "project.query"))
}

func TestDecodeProjectsEmpty(t *testing.T) {
	projects, err := conduit.DecodeProjects(conduit.NewResult([]byte(`{"data": [], "slugMap": []}`)))
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestDecodeProjectsMalformed(t *testing.T) {
	projects, err := conduit.DecodeProjects(conduit.NewResult([]byte(`{"slugMap": [], "data": {"PHID-PROJ-1": `)))
	assert.True(t, conduit.IsDecodeError(err))
	assert.Empty(t, projects)
}

func TestCalendarEventModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("calendar.event.search", `{"data": []}`)
	ctx := context.Background()

	_, err := f.CalendarEvent().UpcomingBySubscriber(ctx, "PHID-USER-1")
	require.NoError(t, err)
	assert.Equal(t, "queryKey=upcoming&constraints[subscribers][0]=PHID-USER-1",
		lastRequest(t, srv, "calendar.event.search"))

	_, err = f.CalendarEvent().Search(ctx, "all", conduit.Map(conduit.F("limit", conduit.Int(5))))
	require.NoError(t, err)
	assert.Equal(t, "queryKey=all&limit=5", lastRequest(t, srv, "calendar.event.search"))
}

func TestConpherenceModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("conpherence.updatethread", `true`)
	srv.ResultJSON("conpherence.querythread", `{"7": {"conpherenceID": "7", "conpherencePHID": "PHID-CONP-1", "conpherenceTitle": "ops"}}`)
	srv.ResultJSON("conpherence.querytransaction", `[]`)
	ctx := context.Background()
	c := f.Conpherence()

	_, err := c.UpdateThread(ctx, "42", "T1 needs action\nT2 needs action")
	require.NoError(t, err)
	assert.Equal(t, "id=42&message=T1 needs action\nT2 needs action", lastRequest(t, srv, "conpherence.updatethread"))

	res, err := c.QueryThreadByID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "ids[0]=7", lastRequest(t, srv, "conpherence.querythread"))
	threads, err := conduit.DecodeThreads(res)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "PHID-CONP-1", threads[0].PHID)

	_, err = c.QueryThread(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", lastRequest(t, srv, "conpherence.querythread"))

	_, err = c.QueryTransactionByPHIDLast(ctx, "PHID-CONP-1", 5)
	require.NoError(t, err)
	assert.Equal(t, "roomPHID=PHID-CONP-1&limit=5", lastRequest(t, srv, "conpherence.querytransaction"))
}

func TestPhrictionModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("phriction.info", `{"slug": "ops/"}`)
	srv.ResultJSON("phriction.edit", `{"slug": "ops/"}`)
	ctx := context.Background()

	_, err := f.Phriction().Info(ctx, "ops/")
	require.NoError(t, err)
	assert.Equal(t, "slug=ops/", lastRequest(t, srv, "phriction.info"))

	_, err = f.Phriction().Edit(ctx, "ops/", "Ops & On-call", "= Runbook =")
	require.NoError(t, err)
	reqs := srv.RequestsFor("phriction.edit")
	require.Len(t, reqs, 1)
	assert.Equal(t, "slug=ops%2F&title=Ops+%26+On-call&content=%3D+Runbook+%3D&api.token="+testToken, reqs[0].Body)
}

func TestFileModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("file.download", `"aGVsbG8="`)
	ctx := context.Background()

	data, err := f.File().DownloadBytes(ctx, "PHID-FILE-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, "phid=PHID-FILE-1", lastRequest(t, srv, "file.download"))

	srv.ResultJSON("file.download", `"***"`)
	_, err = f.File().DownloadBytes(ctx, "PHID-FILE-1")
	assert.True(t, conduit.IsDecodeError(err))
}

func TestDashboardModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("dashboard.panel.edit", `{"object": {"id": 3}}`)

	_, err := f.Dashboard().EditPanelText(context.Background(), "PHID-DSHP-1", "Build is red & on fire")
	require.NoError(t, err)
	assert.Equal(t,
		"transactions[0][type]=custom.text&transactions[0][value]=Build%20is%20red%20%26%20on%20fire&objectIdentifier=PHID-DSHP-1",
		lastRequest(t, srv, "dashboard.panel.edit"))
}

func TestDiffusionModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("diffusion.filecontentquery", `{"filePHID": "PHID-FILE-1"}`)

	res, err := f.Diffusion().FileContentByPathBranch(context.Background(), "README.md", "OPS", "master")
	require.NoError(t, err)
	assert.Equal(t, "path=README.md&repository=rOPS&branch=master", lastRequest(t, srv, "diffusion.filecontentquery"))
	assert.Equal(t, "PHID-FILE-1", res.Str("filePHID"))
}

func TestConduitInfoModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("conduit.ping", `"phab.example.com"`)
	srv.ResultJSON("conduit.getcapabilities", `{"authentication": ["token"]}`)
	ctx := context.Background()

	_, err := f.Conduit().Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", lastRequest(t, srv, "conduit.ping"))

	res, err := f.Conduit().Capabilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", res.Get("authentication.0").Str())
}

func TestRemarkupModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("remarkup.process", `[{"content": "<p><strong>hi</strong> <a href=\"/T1\">T1</a></p>"}]`)

	docs, err := f.Remarkup().Render(context.Background(), "maniphest", "**hi** T1")
	require.NoError(t, err)
	assert.Equal(t, "context=maniphest&contents[0]=**hi** T1", lastRequest(t, srv, "remarkup.process"))
	require.Len(t, docs, 1)

	text, err := conduit.PlainText(docs[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "hi T1", text)

	links, err := conduit.Links(docs[0].Content)
	require.NoError(t, err)
	assert.Equal(t, []string{"/T1"}, links)
}

func TestPlainText(t *testing.T) {
	text, err := conduit.PlainText("<p>Hello <em>world</em></p><ul><li>one</li><li>two</li></ul><script>x()</script>")
	require.NoError(t, err)
	assert.Equal(t, "Hello world one two", text)
}

func TestFactoryModule(t *testing.T) {
	srv, f := newTestFactory(t)
	srv.ResultJSON("harbormaster.build.search", `{"data": []}`)

	ep := f.Module("harbormaster.build")
	assert.Equal(t, "harbormaster.build", ep.Namespace())

	_, err := ep.Call(context.Background(), "search", conduit.Map(conduit.F("queryKey", conduit.String("all"))))
	require.NoError(t, err)
	assert.Equal(t, "queryKey=all", lastRequest(t, srv, "harbormaster.build.search"))
	assert.Same(t, f.Client(), f.Client())
}

func TestDecodeTasksKeepsOrder(t *testing.T) {
	res := conduit.NewResult([]byte(`{
		"PHID-TASK-2": {"id": "2", "phid": "PHID-TASK-2", "objectName": "T2", "status": "actionneeded", "projectPHIDs": ["PHID-PROJ-1"]},
		"PHID-TASK-1": {"id": 1, "phid": "PHID-TASK-1", "objectName": "T1", "status": "open", "projectPHIDs": []}
	}`))

	tasks, err := conduit.DecodeTasks(res)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "T2", tasks[0].ObjectName)
	assert.True(t, tasks[0].InProject("PHID-PROJ-1"))
	assert.Equal(t, "1", tasks[1].ID.String())
	assert.False(t, tasks[1].InProject("PHID-PROJ-1"))
}

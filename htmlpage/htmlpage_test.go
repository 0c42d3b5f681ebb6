package htmlpage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://example.test/app/"

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<a id="go" href="next.html"><span>go</span></a>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "next.html"), []byte(`<p id="msg">hello</p>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))

	snaps, err := LoadDir(dir, base)
	require.NoError(t, err)
	assert.Len(t, snaps.routes, 3, "index served at base and by name, plus next.html")

	p := snaps.Open()
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, base))
	require.NoError(t, p.Click(ctx, "#go span"))
	assert.Equal(t, base+"next.html", p.URL())

	text, found, err := p.Text(ctx, "#msg")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", text)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir(), base)
	assert.Error(t, err)

	_, err = LoadDir(filepath.Join(t.TempDir(), "missing"), base)
	assert.Error(t, err)
}

func TestPage_Waits(t *testing.T) {
	p := NewSnapshots(map[string]string{base: `
<div id="shown"><span class="v">x</span></div>
<div hidden><span id="h1">x</span></div>
<div style="display: none"><span id="h2">x</span></div>
<span class="empty">  </span>
<span class="empty">filled</span>
`}).Open()
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, base))

	assert.NoError(t, p.WaitVisible(ctx, "#shown .v", 0))
	assert.ErrorIs(t, p.WaitVisible(ctx, "#h1", 0), context.DeadlineExceeded)
	assert.ErrorIs(t, p.WaitVisible(ctx, "#h2", 0), context.DeadlineExceeded)
	assert.NoError(t, p.WaitPresent(ctx, "#h2", 0))
	assert.ErrorIs(t, p.WaitPresent(ctx, "#nope", 0), context.DeadlineExceeded)
	assert.NoError(t, p.WaitText(ctx, "span.empty", 0))
	assert.ErrorIs(t, p.WaitText(ctx, "#shown > div", 0), context.DeadlineExceeded)
}

func TestPage_FillAndTexts(t *testing.T) {
	p := NewSnapshots(map[string]string{base: `<input id="q"><b>a</b><b> b </b>`}).Open()
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, base))

	require.NoError(t, p.Fill(ctx, "#q", "20100047218"))
	assert.Equal(t, "20100047218", p.Value("#q"))
	assert.Error(t, p.Fill(ctx, "#missing", "x"))

	texts, err := p.Texts(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", " b "}, texts)

	_, found, err := p.Text(ctx, "i")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = p.Texts(ctx, "b[[")
	assert.Error(t, err)
}

func TestPage_ClickWithoutLink(t *testing.T) {
	p := NewSnapshots(map[string]string{base: `<button id="b">x</button>`}).Open()
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, base))

	require.NoError(t, p.Click(ctx, "#b"))
	assert.Equal(t, base, p.URL())
	assert.Error(t, p.Click(ctx, "#nope"))
}

func TestPage_Navigate(t *testing.T) {
	p := NewSnapshots(map[string]string{base: `<p>x</p>`}).Open()

	assert.ErrorContains(t, p.Navigate(context.Background(), base+"other"), "no snapshot")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Navigate(ctx, base), context.Canceled)

	_, _, err := p.Text(context.Background(), "p")
	assert.ErrorContains(t, err, "no document loaded")
}

func TestPage_Close(t *testing.T) {
	p := NewSnapshots(map[string]string{base: `<p>x</p>`}).Open()
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, base))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 2, p.Closes())
	assert.ErrorIs(t, p.Navigate(ctx, base), ErrClosed)
	assert.ErrorIs(t, p.WaitPresent(ctx, "p", 0), ErrClosed)
}

package assets_test

import (
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/assets"
	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/contact"
	logsvc "github.com/trezcool/edutrack/services/logger"
)

func TestFS_layouts(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml"} {
		_, err := fs.Stat(assets.FS, path.Join(assets.EmailTemplatesDir, name))
		assert.NoError(t, err, name)
	}
	_, err := fs.Stat(assets.FS, assets.CommonPasswordsFile)
	assert.NoError(t, err)
}

func TestEmailTemplates(t *testing.T) {
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(conf, assets.FS, assets.EmailTemplatesDir, logsvc.NewDiscardLogger()))

	fps, err := fs.Glob(assets.FS, path.Join(assets.EmailTemplatesDir, "*"))
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, fp := range fps {
		if fname := path.Base(fp); !strings.HasPrefix(fname, "_") {
			names[strings.TrimSuffix(fname, path.Ext(fname))] = true
		}
	}
	require.Contains(t, names, "contact_message")

	data := map[string]interface{}{
		"contact_message": contact.Message{
			Name: "Jane", Email: "jane@example.com", Subject: "Fees", Message: "How much is the tuition?",
		},
	}
	for name := range names {
		t.Run(name, func(t *testing.T) {
			require.Contains(t, data, name, "no sample data for template %s", name)
			msg := core.EmailMessage{TemplateName: name, TemplateData: data[name]}
			require.NoError(t, msg.Render())
			assert.NotEmpty(t, msg.TextContent)
			assert.NotEmpty(t, msg.HTMLContent)
			assert.Contains(t, msg.TextContent, "EduTrack") // from the layout
		})
	}
}

package modsec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zzOzz/jcparsers/parsers/multipattern"
)

const auditLine = `[Mon Jan 08 15:39:55.735479 2024] [:error] [pid 3426173] [client 90.65.66.20:56764] [client 90.65.66.20] ModSecurity: Warning. Invalid URL Encoding: Non-hexadecimal digits used at REQUEST_BODY. [file "/usr/share/modsecurity-crs/rules/REQUEST-920-PROTOCOL-ENFORCEMENT.conf"] [line "364"] [id "920240"] [msg "URL Encoding Abuse Attack Attempt"] [severity "WARNING"] [ver "OWASP_CRS/3.2.0"] [tag "application-multi"] [tag "language-multi"] [hostname "nextcloud.example.org"] [uri "/remote.php/dav/uploads/1"] [unique_id "ZZwJNqT4GaedrCMW56VQ3QAAAB0"]`

func TestParseAuditLine(t *testing.T) {
	p := &Parser{}
	assert.NoError(t, p.Init(&Options{}))

	rec, err := p.ParseLine(auditLine)
	assert.NoError(t, err)

	// bracketed audit segments
	assert.Equal(t, "920240", rec["id"])
	assert.Equal(t, "URL Encoding Abuse Attack Attempt", rec["msg"])
	assert.Equal(t, "WARNING", rec["severity"])
	assert.Equal(t, "/usr/share/modsecurity-crs/rules/REQUEST-920-PROTOCOL-ENFORCEMENT.conf", rec["file"])
	assert.Equal(t, "364", rec["line"])
	assert.Equal(t, "OWASP_CRS/3.2.0", rec["ver"])
	assert.Equal(t, "nextcloud.example.org", rec["hostname"])
	assert.Equal(t, "/remote.php/dav/uploads/1", rec["uri"])
	assert.Equal(t, "ZZwJNqT4GaedrCMW56VQ3QAAAB0", rec["unique_id"])

	// error-log header
	assert.Equal(t, "Mon Jan 08 15:39:55.735479 2024", rec["date"])
	assert.Equal(t, ":error", rec["loglevel"])
	assert.Equal(t, "3426173", rec["pid"])
	assert.Equal(t, "90.65.66.20:56764", rec["client_port"])
	assert.Equal(t, "90.65.66.20", rec["client"])
	assert.Equal(t, "08", rec["day"])
	assert.Equal(t, "55.735479", rec["second"])
	assert.Equal(t, "2024", rec["year"])

	// freetext between the client segment and the first audit segment
	assert.Equal(t,
		"ModSecurity: Warning. Invalid URL Encoding: Non-hexadecimal digits used at REQUEST_BODY.",
		rec["msg_detail"])

	// the raw line always rides along
	assert.Equal(t, auditLine, rec["raw"])
}

func TestParseHeaderOnlyLine(t *testing.T) {
	// a plain error-log line without audit segments still yields the
	// header fields
	p := &Parser{}
	assert.NoError(t, p.Init(&Options{}))

	rec, err := p.ParseLine(`[Mon Jan 08 15:39:56.042345 2024] [core:notice] [pid 1234] [client 10.0.0.1:1234] [client 10.0.0.1] nothing bracketed after this`)
	assert.NoError(t, err)
	assert.Equal(t, "core:notice", rec["loglevel"])
	assert.Equal(t, "1234", rec["pid"])
	assert.Nil(t, rec["id"])
}

func TestNoMatchBehavior(t *testing.T) {
	// default: a line matching nothing yields a record with only raw
	p := &Parser{}
	assert.NoError(t, p.Init(&Options{}))
	rec, err := p.ParseLine("completely unrelated text")
	assert.NoError(t, err)
	assert.Len(t, rec, 1)
	assert.Equal(t, "completely unrelated text", rec["raw"])

	// strict: the same line is a parse error
	strict := &Parser{}
	assert.NoError(t, strict.Init(&Options{ErrorOnNoMatch: true}))
	_, err = strict.ParseLine("completely unrelated text")
	assert.ErrorIs(t, err, multipattern.ErrNoMatch)
}

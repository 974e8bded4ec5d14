package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand_SourcesProfileFirst(t *testing.T) {
	got := buildCommand("cd 'jobs'", "condor_submit 'submit_job.sub'")
	assert.Equal(t, ". ~/.profile;. ~/.bash_profile;cd 'jobs';condor_submit 'submit_job.sub'", got)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
}

func TestParseHash(t *testing.T) {
	testCases := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{name: "openssl format", out: "MD5(/home/u/a.sim)= 9E107D9D372BB6826BD81D3542A419D6\n", want: "9e107d9d372bb6826bd81d3542a419d6"},
		{name: "profile noise before", out: "welcome to the cluster\n\nMD5(a)= abc123\n", want: "abc123"},
		{name: "path with spaces", out: "MD5(my file)= abc123", want: "abc123"},
		{name: "empty", out: "  \n", wantErr: true},
		{name: "single token", out: "garbage", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseHash(tc.out)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "/home/u", lastLine("motd\n/home/u\n\n"))
	assert.Equal(t, "", lastLine(""))
}

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"id=1", "id=1"},
		{"id=1' OR '1'='1", "id=1'%20OR%20'1'='1"},
		{"id=1\" AND \"1\"=\"1", "id=1%22%20AND%20%221%22=%221"},
		{"q=a%20b&x=<script>", "q=a%20b&x=%3Cscript%3E"},
		{" lead", "%20lead"},
		{"", ""},
		{"q=1%' AND 1=1", "q=1%25'%20AND%201=1"},
		{"%' AND 1=1", "%25'%20AND%201=1"},
		{"q=%zz%4", "q=%25zz%254"},
		{"q=%", "q=%25"},
		{"q=%2f%2F", "q=%2f%2F"},
		{"http://h.test/search%' AND 1=1", "http://h.test/search%25'%20AND%201=1"},
		{"http://h.test/?id=1' #", "http://h.test/?id=1'%20#"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requote(tt.in), tt.in)
	}
}

func TestIsEscape(t *testing.T) {
	assert.True(t, isEscape("%41"))
	assert.True(t, isEscape("%aFrest"))
	assert.False(t, isEscape("%4"))
	assert.False(t, isEscape("%g1"))
	assert.False(t, isEscape("41"))
}

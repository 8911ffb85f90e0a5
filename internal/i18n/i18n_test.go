package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTFallsBackToDefaultLocaleAndKey(t *testing.T) {
	if got := T(LocaleZH, "error.booking_conflict"); got != "该房间在所选日期已被预订" {
		t.Fatalf("unexpected zh message: %s", got)
	}
	if got := T("fr-FR", "error.booking_conflict"); got != "The room is already booked for these dates" {
		t.Fatalf("unknown locale should fall back to default, got %s", got)
	}
	if got := T(LocaleEN, "error.no_such_key"); got != "error.no_such_key" {
		t.Fatalf("missing key should return the key, got %s", got)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		target string
		header string
		want   string
	}{
		{target: "/?lang=zh", want: LocaleZH},
		{target: "/", header: "zh-TW,zh;q=0.9", want: LocaleZH},
		{target: "/", header: "en-GB", want: LocaleEN},
		{target: "/", want: DefaultLocale},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tc.target, nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("ResolveLocale(%s, %s) = %s, want %s", tc.target, tc.header, got, tc.want)
		}
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range catalog[LocaleEN] {
		if _, ok := catalog[LocaleZH][key]; !ok {
			t.Fatalf("zh-CN catalog missing %s", key)
		}
	}
}

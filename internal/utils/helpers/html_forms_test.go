package helpers

import (
	"strings"
	"testing"
	"time"
)

func TestBuildPasswordResetHTML(t *testing.T) {
	out := BuildPasswordResetHTML("https://academy.test/reset?token=abc&x=1", time.Hour)
	if !strings.Contains(out, "https://academy.test/reset?token=abc&amp;x=1") {
		t.Fatal("ссылка должна быть в письме (экранированная)")
	}
	if !strings.Contains(out, "1 ч.") {
		t.Fatal("в письме должен быть срок действия")
	}
}

func TestHumanizeTTL(t *testing.T) {
	if got := humanizeTTL(30 * time.Minute); got != "30 мин." {
		t.Fatalf("got %q", got)
	}
	if got := humanizeTTL(2 * time.Hour); got != "2 ч." {
		t.Fatalf("got %q", got)
	}
}

func TestBuildSimpleHTMLStripsMarkupFromTitle(t *testing.T) {
	out := BuildSimpleHTML(`<script>alert(1)</script>Сброс`, "<p>ok</p>")
	if strings.Contains(out, "<script>") {
		t.Fatal("разметка в заголовке должна вырезаться")
	}
	if !strings.Contains(out, "Сброс") || !strings.Contains(out, "<p>ok</p>") {
		t.Fatal("текст заголовка и тело должны остаться")
	}
}

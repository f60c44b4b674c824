package helpers

import (
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// plain вырезает любую разметку и экранирует текст, подставляемый в письмо.
var plain = bluemonday.StrictPolicy()

func BuildSimpleHTML(title, body string) string {
	return fmt.Sprintf(`
<html>
  <body style="font-family:Arial,sans-serif; background:#f9f9f9;">
    <table width="100%%" cellpadding="0" cellspacing="0" bgcolor="#f9f9f9">
      <tr>
        <td align="center" style="padding:32px 0;">
          <table width="500" bgcolor="#fff" cellpadding="24" cellspacing="0" style="border-radius:8px; box-shadow:0 1px 6px #eee;">
            <tr>
              <td>
                <h2 style="color:#2d74da; margin-top:0;">%s</h2>
                <div style="font-size:16px; color:#222;">%s</div>
                <hr style="margin:32px 0 16px 0; border:0; border-top:1px solid #eee;">
                <div style="font-size:12px; color:#999;">Письмо сгенерировано автоматически. Не отвечайте на него.</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>
`, plain.Sanitize(title), body)
}

func BuildPasswordResetHTML(resetLink string, ttl time.Duration) string {
	link := plain.Sanitize(resetLink)
	body := fmt.Sprintf(`
      <p>Вы запросили восстановление пароля для своей учетной записи Smart Learning Academy.</p>
      <p>Чтобы установить новый пароль, перейдите по ссылке ниже:</p>
      <p>
        <a href="%s" style="display:inline-block;padding:12px 24px;background:#2d74da;color:#fff;text-decoration:none;border-radius:5px;font-weight:bold;">
          Сбросить пароль
        </a>
      </p>
      <p style="font-size:14px; color:#666;">Ссылка действительна %s и сработает только один раз.</p>
      <p style="font-size:12px; color:#999;">Если кнопка не работает — скопируйте ссылку: %s</p>
      <p style="font-size:12px; color:#999;">Если вы не запрашивали восстановление пароля, просто проигнорируйте это письмо.</p>
    `, link, humanizeTTL(ttl), link)
	return BuildSimpleHTML("Восстановление пароля", body)
}

func BuildPasswordChangedHTML(changedAt time.Time) string {
	body := fmt.Sprintf(`
      <p>Пароль вашей учетной записи был изменён %s (UTC).</p>
      <p style="font-size:14px; color:#666;">Если это были не вы — срочно запросите восстановление пароля и свяжитесь с поддержкой.</p>
    `, changedAt.UTC().Format("02.01.2006 15:04"))
	return BuildSimpleHTML("Пароль изменён", body)
}

func humanizeTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d ч.", int(d.Hours()))
	}
	return fmt.Sprintf("%d мин.", int(d.Minutes()))
}

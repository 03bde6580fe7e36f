package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/greeting"
	"github.com/tartampluch/go-greetings/internal/render"
	"gopkg.in/gomail.v2"
)

var greetingHTML = template.Must(template.New("greeting").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, Helvetica, sans-serif; color: #333333;">
<h2>{{.Heading}}</h2>
<p>{{.Salutation}}</p>
<p><img src="cid:{{.ImageID}}" alt="{{.Heading}}" style="max-width: 100%;"></p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p>{{.Signature}}</p>
</body>
</html>
`))

type greetingView struct {
	greeting.Letter
	ImageID string
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name string
	Data []byte
}

// Composer builds the messages of a run.
type Composer struct {
	From     string
	FromName string
	Texts    *greeting.Texts
}

// NewComposer sends from the configured account, or config.DefaultSender
// when no username is set.
func NewComposer(s *config.Settings, texts *greeting.Texts) *Composer {
	from := s.Username
	if from == "" {
		from = config.DefaultSender
	}
	return &Composer{From: from, FromName: s.SenderName, Texts: texts}
}

func (c *Composer) message(to, subject string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader(config.HeaderFrom, c.From, c.FromName)
	m.SetHeader(config.HeaderTo, to)
	m.SetHeader(config.HeaderSubject, subject)
	return m
}

// Greeting builds the card email for one occurrence. The HTML body references
// the embedded card by Content-ID and a plain-text version is included.
func (c *Composer) Greeting(occ engine.Occurrence, card *render.Card) (*gomail.Message, error) {
	rec := occ.Record
	letter := c.Texts.Letter(occ)

	var html bytes.Buffer
	if err := greetingHTML.Execute(&html, greetingView{Letter: letter, ImageID: card.EmbedName()}); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCompose, err)
	}

	m := c.message(rec.Email, c.Texts.Subject(occ.Occasion, rec))
	m.SetBody(config.MimePlain, plainLetter(letter))
	m.AddAlternative(config.MimeHTML, html.String())

	m.Embed(card.EmbedName(), gomail.SetCopyFunc(copyBytes(card.Data)))
	return m, nil
}

func plainLetter(l greeting.Letter) string {
	parts := make([]string, 0, len(l.Paragraphs)+3)
	parts = append(parts, l.Heading, l.Salutation)
	parts = append(parts, l.Paragraphs...)
	parts = append(parts, l.Signature)
	return strings.Join(parts, config.LineBreak+config.LineBreak) + config.LineBreak
}

// Summary builds the end-of-run report email.
func (c *Composer) Summary(to, subject, body string, attachments ...Attachment) *gomail.Message {
	m := c.message(to, subject)
	m.SetBody(config.MimePlain, body)
	for _, a := range attachments {
		m.Attach(a.Name, gomail.SetCopyFunc(copyBytes(a.Data)))
	}
	return m
}

// Test builds the connectivity test message sent by the check command.
func (c *Composer) Test(to string) *gomail.Message {
	m := c.message(to, c.Texts.TestSubject())
	m.SetBody(config.MimePlain, c.Texts.TestBody())
	return m
}

func copyBytes(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}

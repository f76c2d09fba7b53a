package todomate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ykvlv/todo-relay/internal/domain"
)

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken   string `json:"idToken"`
	ExpiresIn string `json:"expiresIn"` // seconds, as a string
}

func (r signInResponse) lifetime() time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(r.ExpiresIn))
	if err != nil || secs <= 60 {
		return 55 * time.Minute
	}
	return time.Duration(secs) * time.Second
}

type feedRequest struct {
	Data feedQuery `json:"data"`
}

type feedQuery struct {
	FeedModelID   string `json:"feedModelId"`
	FeedModelType string `json:"feedModelType"`
	StartDate     int64  `json:"startDate"`
	EndDate       int64  `json:"endDate"`
}

type feedResponse struct {
	Result *struct {
		Result *struct {
			TodoItems []json.RawMessage `json:"todoItems"`
		} `json:"result"`
	} `json:"result"`
}

type todoItem struct {
	ID       any          `json:"id"`
	Content  string       `json:"content"`
	Date     *json.Number `json:"date"`
	RemindAt *json.Number `json:"remindAt"`
	IsDone   bool         `json:"isDone"`
}

func decodeItem(raw json.RawMessage, loc *time.Location) (domain.Item, error) {
	var ti todoItem
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&ti); err != nil {
		return domain.Item{}, err
	}
	due, err := millisPtr(ti.Date, loc)
	if err != nil {
		return domain.Item{}, fmt.Errorf("date: %w", err)
	}
	remind, err := millisPtr(ti.RemindAt, loc)
	if err != nil {
		return domain.Item{}, fmt.Errorf("remindAt: %w", err)
	}

	it := domain.Item{
		Content:  ti.Content,
		Due:      due,
		RemindAt: remind,
		Done:     ti.IsDone,
	}
	if ti.ID != nil {
		it.ID = fmt.Sprint(ti.ID)
	}
	return it, nil
}

func millisPtr(n *json.Number, loc *time.Location) (*time.Time, error) {
	if n == nil || *n == "" {
		return nil, nil
	}
	ms, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return nil, err
		}
		ms = int64(f)
	}
	t := domain.FromMillis(ms, loc)
	return &t, nil
}

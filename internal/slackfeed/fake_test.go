package slackfeed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"
	"github.com/xaenox/daily-summarizer/internal/models"
)

var testWindow = models.TimeWindow{Start: 1704067200, End: 1704153599}

type historyPage struct {
	messages []slack.Message
	err      error
}

type fakeAPI struct {
	channelPages [][]slack.Channel
	channelsErr  error

	history map[string][]historyPage
	replies map[string][]slack.Message
	// repliesErr fails every replies call when set.
	repliesErr error

	users    []slack.User
	usersErr error

	historyParams []slack.GetConversationHistoryParameters
	repliesCalls  int
	usersCalls    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		history: make(map[string][]historyPage),
		replies: make(map[string][]slack.Message),
	}
}

func pageIndex(cursor string) int {
	if cursor == "" {
		return 0
	}
	i, _ := strconv.Atoi(cursor[1:])
	return i
}

func nextCursor(i, total int) string {
	if i+1 >= total {
		return ""
	}
	return fmt.Sprintf("p%d", i+1)
}

func (f *fakeAPI) GetConversationsForUserContext(_ context.Context, params *slack.GetConversationsForUserParameters) ([]slack.Channel, string, error) {
	if f.channelsErr != nil {
		return nil, "", f.channelsErr
	}
	if len(f.channelPages) == 0 {
		return nil, "", nil
	}
	i := pageIndex(params.Cursor)
	return f.channelPages[i], nextCursor(i, len(f.channelPages)), nil
}

func (f *fakeAPI) GetConversationHistoryContext(_ context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	f.historyParams = append(f.historyParams, *params)
	pages := f.history[params.ChannelID]
	if len(pages) == 0 {
		return &slack.GetConversationHistoryResponse{}, nil
	}
	i := pageIndex(params.Cursor)
	if pages[i].err != nil {
		return nil, pages[i].err
	}
	resp := &slack.GetConversationHistoryResponse{Messages: pages[i].messages}
	resp.ResponseMetaData.NextCursor = nextCursor(i, len(pages))
	resp.HasMore = resp.ResponseMetaData.NextCursor != ""
	return resp, nil
}

func (f *fakeAPI) GetConversationRepliesContext(_ context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	f.repliesCalls++
	if f.repliesErr != nil {
		return nil, false, "", f.repliesErr
	}
	return f.replies[params.ChannelID+"/"+params.Timestamp], false, "", nil
}

func (f *fakeAPI) GetUsersContext(_ context.Context, _ ...slack.GetUsersOption) ([]slack.User, error) {
	f.usersCalls++
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

func channel(id, name string) slack.Channel {
	var ch slack.Channel
	ch.ID = id
	ch.Name = name
	ch.NumMembers = 3
	ch.Created = slack.JSONTime(1700000000)
	return ch
}

func message(user, text string, offset int, threadTS string) slack.Message {
	return slack.Message{Msg: slack.Msg{
		User:            user,
		Text:            text,
		Timestamp:       ts(offset),
		ThreadTimestamp: threadTS,
	}}
}

func ts(offset int) string {
	return fmt.Sprintf("%d.%06d", testWindow.Start+int64(offset), offset)
}

func user(id, realName, displayName string) slack.User {
	u := slack.User{ID: id, RealName: realName}
	u.Profile.DisplayName = displayName
	return u
}

func bulkMessages(from, n int) []slack.Message {
	out := make([]slack.Message, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, message("U999", fmt.Sprintf("message %d", i), i, ""))
	}
	return out
}

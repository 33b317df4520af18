package board

import (
	"fmt"
	"strings"
)

// EndOfMessage - marker which terminates every message sent by server.
const EndOfMessage = "<END>"

// TimeLayout - layout of timestamps in replies and notifications.
const TimeLayout = "2006-01-02 15:04:05"

const (
	promptUsername = "Enter username:"
	promptSubject  = "Enter message subject:"
	promptBody     = "Enter message body:"

	replyInvalidCommand = "Invalid command!"
	replyFault          = "An error has occurred, please try again."
	replyPosted         = "Message posted!"
	replyBadUsername    = "Username must be a single non-empty word.\n" + promptUsername
)

// frame - appends end-of-message marker.
func frame(msg string) string {
	return msg + EndOfMessage
}

func formatWelcome(user string) string {
	return fmt.Sprintf("Welcome to the server, %s!", user)
}

func formatTaken(user string) string {
	return fmt.Sprintf("%s is already taken, please choose another username.\n%s", user, promptUsername)
}

func formatGoodbye(user string) string {
	return fmt.Sprintf("Goodbye, %s!", user)
}

func formatBadArguments(verb string) string {
	return fmt.Sprintf("Invalid arguments for %s!", verb)
}

func formatGroupNotFound(id string) string {
	return fmt.Sprintf("Group '%s' does not exist.", id)
}

func formatJoined(group string) string {
	return fmt.Sprintf("You have joined %s!", group)
}

func formatAlreadyMember(group string) string {
	return fmt.Sprintf("You are already a member of %s.", group)
}

func formatJoinNotice(user, group string) string {
	return fmt.Sprintf("%s has joined %s!", user, group)
}

func formatLeft(group string) string {
	return fmt.Sprintf("Successfully left '%s'.", group)
}

func formatNotMember(group string) string {
	return fmt.Sprintf("You are not a member of %s.", group)
}

func formatLeaveNotice(user, group string) string {
	return fmt.Sprintf("%s has left %s!", user, group)
}

func formatCannotPost(group string) string {
	return fmt.Sprintf("Cannot post to group %s. Consider joining the group?", group)
}

func formatCannotRead(group string) string {
	return fmt.Sprintf("Cannot access messages from %s. Consider joining the group?", group)
}

func formatCannotAccess(index int) string {
	return fmt.Sprintf("Sorry, message %d cannot be accessed.", index)
}

func formatNoSuchMessage(index int) string {
	return fmt.Sprintf("Message %d does not exist.", index)
}

// formatHeader - formats message header shared by post notification and message reply.
func formatHeader(group string, m Message) string {
	return fmt.Sprintf(
		"Message ID: %d\nGroup: %s\nFrom: %s\nTime: %s\nSubject: %s",
		m.Index,
		group,
		m.Author,
		m.PostedAt.UTC().Format(TimeLayout),
		m.Subject,
	)
}

func formatPostNotice(group string, m Message) string {
	return formatHeader(group, m)
}

func formatMessage(group string, m Message) string {
	return formatHeader(group, m) + "\n\n" + m.Body
}

func formatUsers(group string, members []string) string {
	if len(members) == 0 {
		return fmt.Sprintf("No users in %s.", group)
	}
	return strings.Join(members, "\n")
}

func formatGroups(groups []*Group) string {
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("%d: %s", g.Alias(), g.Name()))
	}
	return strings.Join(lines, "\n")
}

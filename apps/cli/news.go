package main

import (
	"context"
	"fmt"

	"github.com/trainingcmd/portal/core/news"
)

const newsDateLayout = "2006-01-02 15:04"

// news prints the latest announcements. It does not need a session.
func (cli *commandLine) news(ctx context.Context, limit int, asHTML bool) error {
	items, err := cli.api.News(ctx, limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cli.out, "No announcements.")
		return nil
	}

	render := news.RenderText
	if asHTML {
		render = news.RenderHTML
	}
	for i, it := range items {
		if i > 0 {
			fmt.Fprintln(cli.out)
		}
		body, err := render(it.Body)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s\n%s, %s\n%s\n", it.Title, it.PublishedAt.Local().Format(newsDateLayout), it.Author, body)
	}
	return nil
}

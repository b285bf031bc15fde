// Command socket_spy attaches to a wait-reply rendezvous socket and dumps
// every envelope the primary broadcasts, without participating in matching.
// Useful to watch a coordination group from the side while debugging.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"gewe-lab/broadcast"
	"gewe-lab/domain"
)

func main() {
	_ = godotenv.Load()

	port := flag.Int("port", 4399, "listen port of the wait-reply group to spy on")
	socket := flag.String("socket", "", "explicit socket path (overrides -port)")
	flag.Parse()

	path := *socket
	if path == "" {
		path = domain.SocketPath(*port)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		log.Fatal("No primary reachable at ", path, ": ", err)
	}
	defer conn.Close()

	fmt.Println(color.New(color.FgCyan).Render("Attached to " + path))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Time", "From", "Group", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	count := 0
	reason := ""
	for scanner.Scan() {
		env, err := broadcast.Unmarshal(scanner.Bytes())
		if err != nil {
			fmt.Printf("Skipping undecodable line: %v\n", err)
			continue
		}

		if env.Type == broadcast.TypeShutdown {
			reason = env.Reason
			break
		}

		count++
		content := env.Data.Content
		if len(content) > 60 {
			content = content[:60] + "…"
		}
		table.Append([]string{
			fmt.Sprintf("%d", count),
			env.Data.Timestamp.Format("15:04:05"),
			env.Data.FromWxid,
			env.Data.GroupWxid,
			content,
		})
	}
	if err := scanner.Err(); err != nil {
		log.Fatal("Read error: ", err)
	}

	table.Render()

	switch reason {
	case "":
		fmt.Println(color.New(color.FgYellow).Render("Primary hung up without a shutdown notice"))
	case broadcast.ReasonMatch:
		fmt.Println(color.New(color.FgGreen).Render("Primary shut down: " + reason))
	default:
		fmt.Println(color.New(color.FgRed).Render("Primary shut down: " + reason))
	}
}

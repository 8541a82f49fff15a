package statestore

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/redcon"
)

// serve answers redis-protocol clients on the given network/address.
func (s *Server) serve(networkType, addr string) {
	log.Printf("statestore: listening on %s (%s)", addr, networkType)

	err := redcon.ListenAndServeNetwork(networkType, addr,
		func(conn redcon.Conn, cmd redcon.Command) {
			if len(cmd.Args) == 0 {
				conn.WriteError("ERR empty command")
				return
			}
			switch command := strings.ToLower(string(cmd.Args[0])); command {
			case "ping":
				conn.WriteString("PONG")
			case "echo":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'echo' command")
					return
				}
				conn.WriteBulk(cmd.Args[1])
			case "select":
				// Single keyspace; accept and ignore.
				conn.WriteString("OK")
			case "set":
				// SET key value [EX seconds]
				if len(cmd.Args) < 3 {
					conn.WriteError("ERR wrong number of arguments for 'set' command")
					return
				}
				ttl := time.Duration(0)
				if len(cmd.Args) >= 5 && strings.EqualFold(string(cmd.Args[3]), "ex") {
					seconds, err := strconv.Atoi(string(cmd.Args[4]))
					if err != nil {
						conn.WriteError("ERR invalid expire time")
						return
					}
					ttl = time.Duration(seconds) * time.Second
				}
				s.Set(string(cmd.Args[1]), string(cmd.Args[2]), ttl)
				conn.WriteString("OK")
			case "get":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'get' command")
					return
				}
				v, ok := s.Get(string(cmd.Args[1]))
				if !ok {
					conn.WriteNull()
					return
				}
				conn.WriteBulkString(v)
			case "del":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'del' command")
					return
				}
				conn.WriteInt(s.Del(argStrings(cmd.Args[1:])...))
			case "exists":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'exists' command")
					return
				}
				conn.WriteInt(s.Exists(argStrings(cmd.Args[1:])...))
			case "keys":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'keys' command")
					return
				}
				keys := s.Keys(string(cmd.Args[1]))
				conn.WriteArray(len(keys))
				for _, k := range keys {
					conn.WriteBulkString(k)
				}
			case "scan":
				// SCAN cursor [MATCH pattern] [COUNT n]
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'scan' command")
					return
				}
				cursor, err := strconv.Atoi(string(cmd.Args[1]))
				if err != nil {
					conn.WriteError("ERR invalid cursor")
					return
				}
				pattern := "*"
				count := 10
				for i := 2; i < len(cmd.Args)-1; i++ {
					switch strings.ToLower(string(cmd.Args[i])) {
					case "match":
						pattern = string(cmd.Args[i+1])
						i++
					case "count":
						count, err = strconv.Atoi(string(cmd.Args[i+1]))
						if err != nil {
							conn.WriteError("ERR value is not an integer or out of range")
							return
						}
						i++
					}
				}
				next, keys := s.Scan(cursor, pattern, count)
				conn.WriteArray(2)
				conn.WriteBulkString(strconv.Itoa(next))
				conn.WriteArray(len(keys))
				for _, k := range keys {
					conn.WriteBulkString(k)
				}
			case "hset":
				// HSET key field value [field value ...]
				if len(cmd.Args) < 4 || len(cmd.Args)%2 != 0 {
					conn.WriteError("ERR wrong number of arguments for 'hset' command")
					return
				}
				key := string(cmd.Args[1])
				added := 0
				for i := 2; i+1 < len(cmd.Args); i += 2 {
					added += s.HSet(key, string(cmd.Args[i]), string(cmd.Args[i+1]))
				}
				conn.WriteInt(added)
			case "hget":
				if len(cmd.Args) < 3 {
					conn.WriteError("ERR wrong number of arguments for 'hget' command")
					return
				}
				v, ok := s.HGet(string(cmd.Args[1]), string(cmd.Args[2]))
				if !ok {
					conn.WriteNull()
					return
				}
				conn.WriteBulkString(v)
			case "hdel":
				if len(cmd.Args) < 3 {
					conn.WriteError("ERR wrong number of arguments for 'hdel' command")
					return
				}
				conn.WriteInt(s.HDel(string(cmd.Args[1]), argStrings(cmd.Args[2:])...))
			case "hkeys":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'hkeys' command")
					return
				}
				fields := s.HKeys(string(cmd.Args[1]))
				conn.WriteArray(len(fields))
				for _, f := range fields {
					conn.WriteBulkString(f)
				}
			case "hlen":
				if len(cmd.Args) < 2 {
					conn.WriteError("ERR wrong number of arguments for 'hlen' command")
					return
				}
				conn.WriteInt(s.HLen(string(cmd.Args[1])))
			case "flushdb", "flushall":
				s.FlushAll()
				conn.WriteString("OK")
			case "info":
				conn.WriteBulkString(s.Info())
			case "quit":
				conn.WriteString("OK")
				conn.Close()
			default:
				conn.WriteError("ERR unknown command '" + command + "'")
			}
		},
		func(conn redcon.Conn) bool { return true },
		func(conn redcon.Conn, err error) {},
	)
	if err != nil {
		log.Printf("statestore: server on %s stopped: %v", addr, err)
	}
}

func argStrings(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

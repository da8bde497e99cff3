// Package ftptest runs a minimal in-process anonymous FTP server that serves
// canned LIST output, for tests that drive a real FTP client.
package ftptest

import (
	"bufio"
	"fmt"
	"net"
	"net/textproto"
	"path"
	"strings"
	"sync"
)

// Server answers the commands an anonymous listing session sends:
// USER, PASS, FEAT, TYPE, OPTS, CWD, PWD, EPSV, LIST and QUIT.
type Server struct {
	// Addr is the host:port of the control listener.
	Addr string

	listener net.Listener
	dirs     map[string][]string
	wg       sync.WaitGroup

	mu       sync.Mutex
	commands []string
}

// NewServer starts a server on a loopback port. dirs maps absolute
// directory paths ("/" is the login directory) to the raw LIST lines
// returned for them.
func NewServer(dirs map[string][]string) (*Server, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s := &Server{Addr: l.Addr().String(), listener: l, dirs: make(map[string][]string, len(dirs))}
	for dir, lines := range dirs {
		s.dirs[path.Clean("/"+dir)] = lines
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Close stops accepting sessions and waits for running ones to end.
func (s *Server) Close() {
	_ = s.listener.Close()
	s.wg.Wait()
}

// Commands returns the command verbs received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.session(conn)
		}()
	}
}

func (s *Server) record(verb string) {
	s.mu.Lock()
	s.commands = append(s.commands, verb)
	s.mu.Unlock()
}

type session struct {
	ctrl *textproto.Conn
	cwd  string
	data net.Listener
}

func (s *Server) session(conn net.Conn) {
	sess := &session{ctrl: textproto.NewConn(conn), cwd: "/"}
	defer func() {
		if sess.data != nil {
			_ = sess.data.Close()
		}
		_ = sess.ctrl.Close()
	}()

	sess.reply(220, "ftptest ready")
	for {
		line, err := sess.ctrl.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)
		s.record(verb)

		switch verb {
		case "USER":
			if arg != "anonymous" {
				sess.reply(530, "only anonymous login is allowed")
				continue
			}
			sess.reply(331, "send password")
		case "PASS":
			sess.reply(230, "logged in")
		case "TYPE":
			sess.reply(200, "type set")
		case "PWD":
			sess.reply(257, fmt.Sprintf("%q is the current directory", sess.cwd))
		case "CWD":
			target := arg
			if !strings.HasPrefix(target, "/") {
				target = path.Join(sess.cwd, target)
			}
			target = path.Clean(target)
			if _, ok := s.dirs[target]; !ok {
				sess.reply(550, "no such directory")
				continue
			}
			sess.cwd = target
			sess.reply(250, "directory changed")
		case "EPSV":
			if err := sess.openData(); err != nil {
				sess.reply(425, "cannot open data connection")
				continue
			}
			port := sess.data.Addr().(*net.TCPAddr).Port
			sess.reply(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port))
		case "LIST":
			sess.list(s.dirs[sess.cwd])
		case "QUIT":
			sess.reply(221, "bye")
			return
		default:
			sess.reply(502, "command not implemented")
		}
	}
}

func (sess *session) reply(code int, msg string) {
	_ = sess.ctrl.PrintfLine("%d %s", code, msg)
}

func (sess *session) openData() error {
	if sess.data != nil {
		_ = sess.data.Close()
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	sess.data = l
	return nil
}

func (sess *session) list(lines []string) {
	if sess.data == nil {
		sess.reply(425, "use EPSV first")
		return
	}
	conn, err := sess.data.Accept()
	_ = sess.data.Close()
	sess.data = nil
	if err != nil {
		sess.reply(425, "data connection failed")
		return
	}

	sess.reply(150, "opening data connection")
	w := bufio.NewWriter(conn)
	for _, line := range lines {
		_, _ = w.WriteString(line + "\r\n")
	}
	_ = w.Flush()
	_ = conn.Close()
	sess.reply(226, "transfer complete")
}

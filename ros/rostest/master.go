// Package rostest runs an in-process ROS master so that nodes can be tested
// over real XML-RPC and TCPROS connections without roscore.
package rostest

import (
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/edwinhayes/sendlocalization/xmlrpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	statusError   int32 = -1
	statusFailure int32 = 0
	statusSuccess int32 = 1
)

const callerID = "/master"

type registration struct {
	callerID  string
	callerAPI string
}

type service struct {
	registration
	serviceAPI string
}

type topic struct {
	msgType     string
	publishers  []registration
	subscribers []registration
}

// Master is a minimal implementation of the ROS master API.
type Master struct {
	uri     string
	server  *http.Server
	handler *xmlrpc.Handler
	logger  *logrus.Entry

	mu       sync.Mutex
	services map[string]service
	topics   map[string]*topic
	params   map[string]interface{}

	notify sync.WaitGroup
	serve  sync.WaitGroup
}

// NewMaster starts a master on a random loopback port.
func NewMaster() (*Master, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "listening for master")
	}
	m := &Master{
		uri:      fmt.Sprintf("http://%s/", listener.Addr().String()),
		logger:   logrus.WithField("node", callerID),
		services: make(map[string]service),
		topics:   make(map[string]*topic),
		params:   make(map[string]interface{}),
	}
	m.handler = xmlrpc.NewHandler(m.methods())
	m.server = &http.Server{Handler: m.handler}
	m.serve.Add(1)
	go func() {
		defer m.serve.Done()
		if err := m.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			m.logger.Errorf("Master stopped: %v", err)
		}
	}()
	return m, nil
}

// URI is the value to use as ROS_MASTER_URI or __master.
func (m *Master) URI() string {
	return m.uri
}

// Close stops the master and waits for pending publisherUpdate calls.
func (m *Master) Close() error {
	err := m.server.Close()
	m.handler.WaitForShutdown()
	m.serve.Wait()
	m.notify.Wait()
	return err
}

// LookupService reports the rosrpc address registered for service.
func (m *Master) LookupService(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[name]
	return s.serviceAPI, ok
}

// Services lists the registered service names in order.
func (m *Master) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumPublishers and NumSubscribers count registrations on a topic.
func (m *Master) NumPublishers(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[name]; ok {
		return len(t.publishers)
	}
	return 0
}

func (m *Master) NumSubscribers(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[name]; ok {
		return len(t.subscribers)
	}
	return 0
}

// Param returns a parameter value as stored on the server.
func (m *Master) Param(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.params[key]
	return v, ok
}

// SetParam stores a parameter as if a node had called setParam.
func (m *Master) SetParam(key string, value interface{}) {
	m.mu.Lock()
	m.params[key] = value
	m.mu.Unlock()
}

func result(code int32, message string, value interface{}) interface{} {
	return []interface{}{code, message, value}
}

func (m *Master) methods() map[string]xmlrpc.Method {
	return map[string]xmlrpc.Method{
		"getUri": func(caller string) (interface{}, error) {
			return result(statusSuccess, "", m.uri), nil
		},
		"registerService":      m.registerService,
		"unregisterService":    m.unregisterService,
		"lookupService":        m.lookupService,
		"registerPublisher":    m.registerPublisher,
		"unregisterPublisher":  m.unregisterPublisher,
		"registerSubscriber":   m.registerSubscriber,
		"unregisterSubscriber": m.unregisterSubscriber,
		"getParam":             m.getParam,
		"setParam":             m.setParam,
		"hasParam":             m.hasParam,
		"deleteParam":          m.deleteParam,
		"searchParam":          m.searchParam,
		"getParamNames":        m.getParamNames,
	}
}

func (m *Master) registerService(caller, name, serviceAPI, callerAPI string) (interface{}, error) {
	m.mu.Lock()
	m.services[name] = service{registration{caller, callerAPI}, serviceAPI}
	m.mu.Unlock()
	m.logger.Debugf("registerService %s at %s by %s", name, serviceAPI, caller)
	return result(statusSuccess, "Registered", int32(0)), nil
}

func (m *Master) unregisterService(caller, name, serviceAPI string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.services[name]; ok && s.serviceAPI == serviceAPI {
		delete(m.services, name)
		return result(statusSuccess, "Unregistered", int32(1)), nil
	}
	return result(statusSuccess, "Not registered", int32(0)), nil
}

func (m *Master) lookupService(caller, name string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.services[name]; ok {
		return result(statusSuccess, "", s.serviceAPI), nil
	}
	return result(statusError, "no provider", ""), nil
}

func (m *Master) topic(name, msgType string) *topic {
	t, ok := m.topics[name]
	if !ok {
		t = &topic{msgType: msgType}
		m.topics[name] = t
	}
	if t.msgType == "" || t.msgType == "*" {
		t.msgType = msgType
	}
	return t
}

func apis(regs []registration) []interface{} {
	list := make([]interface{}, len(regs))
	for i, r := range regs {
		list[i] = r.callerAPI
	}
	return list
}

func without(regs []registration, callerAPI string) ([]registration, bool) {
	for i, r := range regs {
		if r.callerAPI == callerAPI {
			return append(regs[:i:i], regs[i+1:]...), true
		}
	}
	return regs, false
}

func (m *Master) registerPublisher(caller, name, msgType, callerAPI string) (interface{}, error) {
	m.mu.Lock()
	t := m.topic(name, msgType)
	t.publishers, _ = without(t.publishers, callerAPI)
	t.publishers = append(t.publishers, registration{caller, callerAPI})
	subscribers := apis(t.subscribers)
	m.notifySubscribers(name, t)
	m.mu.Unlock()
	return result(statusSuccess, "Registered", subscribers), nil
}

func (m *Master) unregisterPublisher(caller, name, callerAPI string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[name]
	if !ok {
		return result(statusSuccess, "Not registered", int32(0)), nil
	}
	var removed bool
	if t.publishers, removed = without(t.publishers, callerAPI); !removed {
		return result(statusSuccess, "Not registered", int32(0)), nil
	}
	m.notifySubscribers(name, t)
	return result(statusSuccess, "Unregistered", int32(1)), nil
}

func (m *Master) registerSubscriber(caller, name, msgType, callerAPI string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.topic(name, msgType)
	t.subscribers, _ = without(t.subscribers, callerAPI)
	t.subscribers = append(t.subscribers, registration{caller, callerAPI})
	return result(statusSuccess, "Subscribed", apis(t.publishers)), nil
}

func (m *Master) unregisterSubscriber(caller, name, callerAPI string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.topics[name]
	if !ok {
		return result(statusSuccess, "Not subscribed", int32(0)), nil
	}
	var removed bool
	if t.subscribers, removed = without(t.subscribers, callerAPI); !removed {
		return result(statusSuccess, "Not subscribed", int32(0)), nil
	}
	return result(statusSuccess, "Unsubscribed", int32(1)), nil
}

// notifySubscribers sends publisherUpdate to every subscriber of t.
// Must be called with m.mu held.
func (m *Master) notifySubscribers(name string, t *topic) {
	publishers := apis(t.publishers)
	for _, sub := range t.subscribers {
		m.notify.Add(1)
		go func(api string) {
			defer m.notify.Done()
			if _, err := xmlrpc.Call(api, "publisherUpdate", callerID, name, publishers); err != nil {
				m.logger.Debugf("publisherUpdate to %s failed: %v", api, err)
			}
		}(sub.callerAPI)
	}
}

func canonicalKey(key string) string {
	if key != "/" {
		key = strings.TrimSuffix(key, "/")
	}
	return key
}

// paramTree returns the value of key, assembling a map when key is a
// namespace holding other parameters.
func (m *Master) paramTree(key string) (interface{}, bool) {
	if v, ok := m.params[key]; ok {
		return v, true
	}
	prefix := key
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	tree := map[string]interface{}{}
	for k, v := range m.params {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(k, prefix), "/")
		node := tree
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	if len(tree) == 0 {
		return nil, false
	}
	return tree, true
}

func (m *Master) getParam(caller, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.paramTree(canonicalKey(key)); ok {
		return result(statusSuccess, "", v), nil
	}
	return result(statusError, fmt.Sprintf("Parameter [%s] is not set", key), int32(0)), nil
}

func (m *Master) setParam(caller, key string, value interface{}) (interface{}, error) {
	key = canonicalKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if tree, ok := value.(map[string]interface{}); ok {
		m.deleteTree(key)
		m.setTree(key, tree)
	} else {
		m.deleteTree(key)
		m.params[key] = value
	}
	return result(statusSuccess, "", int32(0)), nil
}

func (m *Master) setTree(prefix string, tree map[string]interface{}) {
	for k, v := range tree {
		key := strings.TrimSuffix(prefix, "/") + "/" + k
		if sub, ok := v.(map[string]interface{}); ok {
			m.setTree(key, sub)
			continue
		}
		m.params[key] = v
	}
}

func (m *Master) deleteTree(key string) bool {
	_, found := m.params[key]
	delete(m.params, key)
	prefix := strings.TrimSuffix(key, "/") + "/"
	for k := range m.params {
		if strings.HasPrefix(k, prefix) {
			delete(m.params, k)
			found = true
		}
	}
	return found
}

func (m *Master) hasParam(caller, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.paramTree(canonicalKey(key))
	return result(statusSuccess, key, ok), nil
}

func (m *Master) deleteParam(caller, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.deleteTree(canonicalKey(key)) {
		return result(statusError, fmt.Sprintf("Parameter [%s] is not set", key), int32(0)), nil
	}
	return result(statusSuccess, "", int32(0)), nil
}

// searchParam looks key up in the caller's namespace and then in each
// enclosing namespace.
func (m *Master) searchParam(caller, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.HasPrefix(key, "/") {
		if _, ok := m.paramTree(canonicalKey(key)); ok {
			return result(statusSuccess, "", canonicalKey(key)), nil
		}
		return result(statusError, "not found", ""), nil
	}
	key = strings.TrimPrefix(key, "~")
	first := strings.SplitN(key, "/", 2)[0]
	ns := caller
	for {
		ns = ns[:strings.LastIndex(ns, "/")+1]
		if _, ok := m.paramTree(ns + first); ok {
			return result(statusSuccess, "", ns+key), nil
		}
		if ns == "/" || ns == "" {
			break
		}
		ns = strings.TrimSuffix(ns, "/")
	}
	return result(statusError, "not found", ""), nil
}

func (m *Master) getParamNames(caller string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]interface{}, 0, len(m.params))
	for k := range m.params {
		names = append(names, k)
	}
	return result(statusSuccess, "", names), nil
}

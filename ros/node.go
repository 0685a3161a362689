package ros

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/edwinhayes/sendlocalization/xmlrpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MasterURIEnv names the environment variable holding the master address.
const MasterURIEnv = "ROS_MASTER_URI"

const (
	jobQueueSize = 100
	spinTimeout  = 100 * time.Millisecond
)

// *defaultNode implements Node interface
// Spin and SpinOnce must be called from a single user goroutine.
type defaultNode struct {
	name          string
	namespace     string
	qualifiedName string
	masterURI     string
	xmlrpcURI     string
	xmlrpcServer  *http.Server
	xmlrpcHandler *xmlrpc.Handler
	hostname      string
	listenIP      string
	nameResolver  *NameResolver
	nonRosArgs    []string
	logger        *logrus.Entry

	mu          sync.Mutex
	subscribers map[string]*defaultSubscriber
	publishers  map[string]*defaultPublisher
	servers     map[string]*defaultServiceServer

	jobChan      chan func()
	quitChan     chan struct{}
	ok           bool
	okMutex      sync.RWMutex
	waitGroup    sync.WaitGroup
	shutdownOnce sync.Once
}

func newDefaultNode(name string, args []string) (*defaultNode, error) {
	node := new(defaultNode)

	namespace, nodeName, err := qualifyNodeName(name)
	if err != nil {
		return nil, err
	}

	remapping, params, specials, rest := processArguments(args)

	node.name = nodeName
	if value, ok := specials["__name"]; ok {
		node.name = value
	}

	node.namespace = namespace
	if ns := os.Getenv("ROS_NAMESPACE"); len(ns) > 0 {
		node.namespace = ns
	}
	if value, ok := specials["__ns"]; ok {
		node.namespace = value
	}
	node.namespace = canonicalizeName(GlobalNS + node.namespace)
	if node.namespace != GlobalNS {
		node.namespace += Sep
	}
	if !isValidNamespace(node.namespace) {
		return nil, errors.Errorf("invalid namespace %q", node.namespace)
	}

	var onlyLocalhost bool
	node.hostname, onlyLocalhost = determineHost()
	if value, ok := specials["__hostname"]; ok {
		node.hostname = value
		onlyLocalhost = value == "localhost"
	} else if value, ok := specials["__ip"]; ok {
		node.hostname = value
		onlyLocalhost = isLoopbackAddress(value)
	}
	if onlyLocalhost {
		node.listenIP = "127.0.0.1"
	} else {
		node.listenIP = "0.0.0.0"
	}

	node.masterURI = os.Getenv(MasterURIEnv)
	if value, ok := specials["__master"]; ok {
		node.masterURI = value
	}
	if node.masterURI == "" {
		return nil, errors.Errorf("%s is not set", MasterURIEnv)
	}

	node.qualifiedName = node.namespace + node.name
	node.nameResolver = newNameResolver(node.qualifiedName, remapping)
	node.nonRosArgs = rest
	node.subscribers = make(map[string]*defaultSubscriber)
	node.publishers = make(map[string]*defaultPublisher)
	node.servers = make(map[string]*defaultServiceServer)
	node.jobChan = make(chan func(), jobQueueSize)
	node.quitChan = make(chan struct{})
	node.ok = true
	node.logger = nodeLogger(NewLogger(specials["__log_level"]), node.qualifiedName)

	logger := node.logger
	logger.Debugf("Master URI = %s", node.masterURI)

	if _, err := callRosAPI(node.masterURI, "getUri", node.qualifiedName); err != nil {
		return nil, errors.Wrapf(err, "contacting master at %s", node.masterURI)
	}

	// Set parameters set by arguments
	for k, v := range params {
		key := node.nameResolver.resolve(PrivateNS + k)
		if _, err := callRosAPI(node.masterURI, "setParam", node.qualifiedName, key, loadParamFromString(v)); err != nil {
			return nil, errors.Wrapf(err, "setting parameter %s", key)
		}
	}

	if err := node.startSlaveAPI(); err != nil {
		return nil, err
	}
	logger.Debugf("Started %s", node.qualifiedName)
	return node, nil
}

func (node *defaultNode) startSlaveAPI() error {
	listener, err := listenTCP(node.listenIP)
	if err != nil {
		return err
	}
	node.xmlrpcURI = fmt.Sprintf("http://%s/", net.JoinHostPort(node.hostname, listenerPort(listener)))
	node.logger.Debugf("Slave API listens on %s", listener.Addr().String())

	m := map[string]xmlrpc.Method{
		"getBusStats":      func(callerID string) (interface{}, error) { return node.getBusStats(callerID) },
		"getBusInfo":       func(callerID string) (interface{}, error) { return node.getBusInfo(callerID) },
		"getMasterUri":     func(callerID string) (interface{}, error) { return node.getMasterURI(callerID) },
		"shutdown":         func(callerID string, msg string) (interface{}, error) { return node.shutdown(callerID, msg) },
		"getPid":           func(callerID string) (interface{}, error) { return node.getPid(callerID) },
		"getSubscriptions": func(callerID string) (interface{}, error) { return node.getSubscriptions(callerID) },
		"getPublications":  func(callerID string) (interface{}, error) { return node.getPublications(callerID) },
		"paramUpdate": func(callerID string, key string, value interface{}) (interface{}, error) {
			return node.paramUpdate(callerID, key, value)
		},
		"publisherUpdate": func(callerID string, topic string, publishers []interface{}) (interface{}, error) {
			return node.publisherUpdate(callerID, topic, publishers)
		},
		"requestTopic": func(callerID string, topic string, protocols []interface{}) (interface{}, error) {
			return node.requestTopic(callerID, topic, protocols)
		},
	}
	node.xmlrpcHandler = xmlrpc.NewHandler(m)
	node.xmlrpcServer = &http.Server{Handler: node.xmlrpcHandler}
	node.waitGroup.Add(1)
	go func() {
		defer node.waitGroup.Done()
		if err := node.xmlrpcServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			node.logger.Errorf("Slave API server stopped: %v", err)
		}
	}()
	return nil
}

func (node *defaultNode) OK() bool {
	node.okMutex.RLock()
	defer node.okMutex.RUnlock()
	return node.ok
}

func (node *defaultNode) setOK(ok bool) {
	node.okMutex.Lock()
	node.ok = ok
	node.okMutex.Unlock()
}

func (node *defaultNode) Name() string {
	return node.qualifiedName
}

func (node *defaultNode) Logger() *logrus.Entry {
	return node.logger
}

func (node *defaultNode) NonRosArgs() []string {
	return node.nonRosArgs
}

// enqueue hands a job to the spin loop. It fails once the node or the
// caller (quit) is shut down, even while the job queue is full.
func (node *defaultNode) enqueue(job func(), quit <-chan struct{}) bool {
	select {
	case node.jobChan <- job:
		return true
	case <-node.quitChan:
		return false
	case <-quit:
		return false
	}
}

func (node *defaultNode) getBusStats(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusError, "Not implemented", 0), nil
}

func (node *defaultNode) getBusInfo(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusError, "Not implemented", 0), nil
}

func (node *defaultNode) getMasterURI(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusSuccess, "Success", node.masterURI), nil
}

func (node *defaultNode) shutdown(callerID string, msg string) (interface{}, error) {
	node.logger.Infof("Shutdown requested by %s: %s", callerID, msg)
	node.setOK(false)
	return buildRosAPIResult(APIStatusSuccess, "Success", 0), nil
}

func (node *defaultNode) getPid(callerID string) (interface{}, error) {
	return buildRosAPIResult(APIStatusSuccess, "Success", os.Getpid()), nil
}

func (node *defaultNode) getSubscriptions(callerID string) (interface{}, error) {
	node.mu.Lock()
	defer node.mu.Unlock()
	result := []interface{}{}
	for t, s := range node.subscribers {
		result = append(result, []interface{}{t, s.msgType.Name()})
	}
	return buildRosAPIResult(APIStatusSuccess, "Success", result), nil
}

func (node *defaultNode) getPublications(callerID string) (interface{}, error) {
	node.mu.Lock()
	defer node.mu.Unlock()
	result := []interface{}{}
	for t, p := range node.publishers {
		result = append(result, []interface{}{t, p.msgType.Name()})
	}
	return buildRosAPIResult(APIStatusSuccess, "Success", result), nil
}

func (node *defaultNode) paramUpdate(callerID string, key string, value interface{}) (interface{}, error) {
	return buildRosAPIResult(APIStatusError, "Not implemented", 0), nil
}

func (node *defaultNode) publisherUpdate(callerID string, topic string, publishers []interface{}) (interface{}, error) {
	node.logger.Debugf("Slave API publisherUpdate(%s) called.", topic)
	node.mu.Lock()
	sub, ok := node.subscribers[topic]
	node.mu.Unlock()
	if !ok {
		return buildRosAPIResult(APIStatusFailure, "No such topic", 0), nil
	}
	pubURIs := make([]string, 0, len(publishers))
	for _, uri := range publishers {
		if s, ok := uri.(string); ok {
			pubURIs = append(pubURIs, s)
		}
	}
	sub.updatePublishers(pubURIs)
	return buildRosAPIResult(APIStatusSuccess, "Success", 0), nil
}

func (node *defaultNode) requestTopic(callerID string, topic string, protocols []interface{}) (interface{}, error) {
	node.logger.Debugf("Slave API requestTopic(%s, %s, ...) called.", callerID, topic)
	node.mu.Lock()
	pub, ok := node.publishers[topic]
	node.mu.Unlock()
	if !ok {
		return buildRosAPIResult(APIStatusFailure, "No such topic", 0), nil
	}
	for _, v := range protocols {
		protocolParams, ok := v.([]interface{})
		if !ok || len(protocolParams) == 0 {
			continue
		}
		if name, _ := protocolParams[0].(string); name == "TCPROS" {
			port, err := strconv.Atoi(pub.port())
			if err != nil {
				return nil, err
			}
			return buildRosAPIResult(APIStatusSuccess, "Success", []interface{}{"TCPROS", node.hostname, port}), nil
		}
	}
	return buildRosAPIResult(APIStatusFailure, "No supported protocol", []interface{}{}), nil
}

func (node *defaultNode) NewPublisher(topic string, msgType MessageType) (Publisher, error) {
	name := node.nameResolver.remap(topic)
	node.mu.Lock()
	if pub, ok := node.publishers[name]; ok {
		node.mu.Unlock()
		if pub.msgType.MD5Sum() != msgType.MD5Sum() {
			return nil, errors.Errorf("topic %s already published as %s", name, pub.msgType.Name())
		}
		return pub, nil
	}
	pub, err := newDefaultPublisher(node, name, msgType)
	if err != nil {
		node.mu.Unlock()
		return nil, err
	}
	node.publishers[name] = pub
	node.mu.Unlock()

	if _, err := callRosAPI(node.masterURI, "registerPublisher",
		node.qualifiedName, name, msgType.Name(), node.xmlrpcURI); err != nil {
		node.removePublisher(name, pub)
		pub.stop()
		return nil, errors.Wrapf(err, "registering publisher %s", name)
	}
	return pub, nil
}

func (node *defaultNode) NewSubscriber(topic string, msgType MessageType, callback interface{}) (Subscriber, error) {
	name := node.nameResolver.remap(topic)
	if err := checkSubscriberCallback(callback); err != nil {
		return nil, err
	}
	node.mu.Lock()
	if sub, ok := node.subscribers[name]; ok {
		node.mu.Unlock()
		sub.addCallback(callback)
		return sub, nil
	}
	sub := newDefaultSubscriber(node, name, msgType, callback)
	node.subscribers[name] = sub
	node.mu.Unlock()

	node.logger.Debug("Call Master API registerSubscriber")
	result, err := callRosAPI(node.masterURI, "registerSubscriber",
		node.qualifiedName, name, msgType.Name(), node.xmlrpcURI)
	if err != nil {
		node.removeSubscriber(name, sub)
		sub.stop()
		return nil, errors.Wrapf(err, "registering subscriber %s", name)
	}
	list, _ := result.([]interface{})
	var publishers []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			publishers = append(publishers, s)
		}
	}
	sub.updatePublishers(publishers)
	return sub, nil
}

func (node *defaultNode) NewServiceClient(service string, srvType ServiceType) ServiceClient {
	name := node.nameResolver.remap(service)
	return newDefaultServiceClient(node.logger, node.qualifiedName, node.masterURI, name, srvType)
}

func (node *defaultNode) NewServiceServer(service string, srvType ServiceType, handler interface{}) (ServiceServer, error) {
	name := node.nameResolver.remap(service)
	node.mu.Lock()
	old, ok := node.servers[name]
	node.mu.Unlock()
	if ok {
		old.Shutdown()
	}
	server, err := newDefaultServiceServer(node, name, srvType, handler)
	if err != nil {
		return nil, err
	}
	node.mu.Lock()
	node.servers[name] = server
	node.mu.Unlock()
	return server, nil
}

func (node *defaultNode) removeServer(name string, s *defaultServiceServer) {
	node.mu.Lock()
	defer node.mu.Unlock()
	if node.servers[name] == s {
		delete(node.servers, name)
	}
}

func (node *defaultNode) removePublisher(name string, p *defaultPublisher) {
	node.mu.Lock()
	defer node.mu.Unlock()
	if node.publishers[name] == p {
		delete(node.publishers, name)
	}
}

func (node *defaultNode) removeSubscriber(name string, s *defaultSubscriber) {
	node.mu.Lock()
	defer node.mu.Unlock()
	if node.subscribers[name] == s {
		delete(node.subscribers, name)
	}
}

func (node *defaultNode) SpinOnce() {
	select {
	case job := <-node.jobChan:
		job()
	case <-time.After(10 * time.Millisecond):
	}
}

func (node *defaultNode) Spin() {
	for node.OK() {
		select {
		case job := <-node.jobChan:
			job()
		case <-node.quitChan:
			return
		case <-time.After(spinTimeout):
		}
	}
}

func (node *defaultNode) Shutdown() {
	node.shutdownOnce.Do(node.doShutdown)
}

func (node *defaultNode) doShutdown() {
	logger := node.logger
	logger.Debug("Shutting node down")
	node.setOK(false)

	node.mu.Lock()
	subscribers := make([]*defaultSubscriber, 0, len(node.subscribers))
	for _, s := range node.subscribers {
		subscribers = append(subscribers, s)
	}
	publishers := make([]*defaultPublisher, 0, len(node.publishers))
	for _, p := range node.publishers {
		publishers = append(publishers, p)
	}
	servers := make([]*defaultServiceServer, 0, len(node.servers))
	for _, s := range node.servers {
		servers = append(servers, s)
	}
	node.mu.Unlock()

	for _, s := range subscribers {
		s.Shutdown()
	}
	for _, p := range publishers {
		p.Shutdown()
	}
	for _, s := range servers {
		s.Shutdown()
	}
	close(node.quitChan)

	logger.Debug("Close slave API server")
	if err := node.xmlrpcServer.Close(); err != nil {
		logger.Warnf("Closing slave API server: %v", err)
	}
	node.xmlrpcHandler.WaitForShutdown()
	node.waitGroup.Wait()
	logger.Debug("Shutting node down completed")
}

func (node *defaultNode) GetParam(key string) (interface{}, error) {
	name := node.nameResolver.remap(key)
	return callRosAPI(node.masterURI, "getParam", node.qualifiedName, name)
}

func (node *defaultNode) SetParam(key string, value interface{}) error {
	name := node.nameResolver.remap(key)
	_, err := callRosAPI(node.masterURI, "setParam", node.qualifiedName, name, value)
	return err
}

func (node *defaultNode) HasParam(key string) (bool, error) {
	name := node.nameResolver.remap(key)
	result, err := callRosAPI(node.masterURI, "hasParam", node.qualifiedName, name)
	if err != nil {
		return false, err
	}
	hasParam, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("hasParam returned %T", result)
	}
	return hasParam, nil
}

func (node *defaultNode) SearchParam(key string) (string, error) {
	result, err := callRosAPI(node.masterURI, "searchParam", node.qualifiedName, key)
	if err != nil {
		return "", err
	}
	foundKey, ok := result.(string)
	if !ok {
		return "", errors.Errorf("searchParam returned %T", result)
	}
	return foundKey, nil
}

func (node *defaultNode) DeleteParam(key string) error {
	name := node.nameResolver.remap(key)
	_, err := callRosAPI(node.masterURI, "deleteParam", node.qualifiedName, name)
	return err
}

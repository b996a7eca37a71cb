// Package discovery resolves Central connection details from a Kubernetes
// cluster, for runs where cissync executes next to the RHACS deployment.
package discovery

import (
	"context"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// DefaultNamespace is where the RHACS operator installs Central.
const DefaultNamespace = "stackrox"

const centralServiceName = "central"

// CentralURL resolves the in-cluster URL of the Central service in the
// given namespace.
func CentralURL(ctx context.Context, client kubernetes.Interface, namespace string) (string, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	svc, err := client.CoreV1().Services(namespace).Get(ctx, centralServiceName, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("looking up central service in %q: %w", namespace, err)
	}

	port := int32(443)
	for i := range svc.Spec.Ports {
		p := &svc.Spec.Ports[i]
		if p.Name == "https" || p.Port == 443 {
			port = p.Port
			break
		}
	}

	return fmt.Sprintf("https://%s.%s.svc:%d", centralServiceName, namespace, port), nil
}

// APIToken reads an API token from a Secret key in the given namespace.
// An empty key defaults to "token".
func APIToken(ctx context.Context, client kubernetes.Interface, namespace, secretName, key string) (string, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if key == "" {
		key = "token"
	}

	secret, err := client.CoreV1().Secrets(namespace).Get(ctx, secretName, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("reading token secret %q: %w", secretName, err)
	}

	data, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("secret %q has no key %q", secretName, key)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("secret %q key %q is empty", secretName, key)
	}
	return token, nil
}
